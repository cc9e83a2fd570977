package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/dto"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/service"
)

// PlaceHandler 封装了画布相关的 HTTP 接口
type PlaceHandler struct {
	placeService *service.PlaceService
}

// NewPlaceHandler 创建 PlaceHandler 实例
func NewPlaceHandler(placeService *service.PlaceService) *PlaceHandler {
	if placeService == nil {
		panic("PlaceService cannot be nil for PlaceHandler")
	}
	return &PlaceHandler{placeService: placeService}
}

// pixelQuery 是像素查询接口的参数
type pixelQuery struct {
	X *int `form:"x" binding:"required"`
	Y *int `form:"y" binding:"required"`
}

// Draw 处理 POST /api/place/draw.json
func (h *PlaceHandler) Draw(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req dto.DrawRequest
	if err := c.ShouldBind(&req); err != nil {
		logrus.WithField("user_id", actor.ID).WithError(err).Debug("Handler.Draw: Invalid input")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: x, y and color are required")
		return
	}

	wait, err := h.placeService.Draw(c.Request.Context(), actor, *req.X, *req.Y, *req.Color)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.WaitResponse{WaitSeconds: waitSeconds(wait.Seconds())})
}

// DrawRect 处理 POST /api/place/drawrect.json, 需要管理员权限
func (h *PlaceHandler) DrawRect(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req dto.DrawRectRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: x, y, width, height and color are required")
		return
	}

	rect := domain.Rect{X: *req.X, Y: *req.Y, W: req.Width, H: req.Height}
	if err := h.placeService.DrawRect(c.Request.Context(), actor, rect, *req.Color); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.WaitResponse{WaitSeconds: 0})
}

// TimeToWait 处理 GET /api/place/time-to-wait.json
func (h *PlaceHandler) TimeToWait(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	wait, err := h.placeService.TimeToWait(c.Request.Context(), actor.ID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.WaitResponse{WaitSeconds: waitSeconds(wait.Seconds())})
}

// Bitmap 处理 GET /api/place/board-bitmap, 返回 4 bit 打包的原始字节
func (h *PlaceHandler) Bitmap(c *gin.Context) {
	bitmap, err := h.placeService.Bitmap(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/octet-stream", bitmap)
}

// PixelInfo 处理 GET /api/place/pixel.json, 从未被放置过的格子返回 {}
func (h *PlaceHandler) PixelInfo(c *gin.Context) {
	var q pixelQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: x and y are required")
		return
	}

	info, err := h.placeService.PixelInfo(c.Request.Context(), *q.X, *q.Y)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if info == nil {
		SuccessResponse(c, http.StatusOK, gin.H{})
		return
	}
	SuccessResponse(c, http.StatusOK, info)
}
