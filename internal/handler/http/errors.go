package http

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/dto"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/service"
)

// HandleServiceError 把 Service 层的业务错误映射为 HTTP 响应
func HandleServiceError(c *gin.Context, err error) {
	var cooldown *service.CooldownError
	switch {
	case errors.As(err, &cooldown):
		c.JSON(http.StatusTooManyRequests, dto.RateLimitedResponse{
			Error:       http.StatusTooManyRequests,
			WaitSeconds: waitSeconds(cooldown.Wait.Seconds()),
		})
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrInvalidColor):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// waitSeconds 向上取到 0.1 秒, 避免客户端提前重试
func waitSeconds(s float64) float64 {
	if s <= 0 {
		return 0
	}
	return math.Ceil(s*10) / 10
}
