package http

import (
	"github.com/gin-gonic/gin"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/dto"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/service"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, dto.ErrorDTO{Error: message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// actorFromContext 读取 Auth 中间件写入的用户信息
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	idAny, exists := c.Get("user_id")
	if !exists {
		return service.Actor{}, false
	}
	id, ok := idAny.(uint)
	if !ok {
		return service.Actor{}, false
	}
	actor := service.Actor{ID: id}
	actor.Username = c.GetString("user_name")
	actor.IsAdmin = c.GetBool("is_admin")
	return actor, true
}
