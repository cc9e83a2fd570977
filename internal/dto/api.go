package dto

// DrawRequest 是绘制接口的表单参数。
type DrawRequest struct {
	X     *int `form:"x" json:"x" binding:"required"`
	Y     *int `form:"y" json:"y" binding:"required"`
	Color *int `form:"color" json:"color" binding:"required"`
}

// DrawRectRequest 是管理员区域填充接口的参数。
type DrawRectRequest struct {
	X      *int `form:"x" json:"x" binding:"required"`
	Y      *int `form:"y" json:"y" binding:"required"`
	Width  int  `form:"width" json:"width" binding:"required,min=1"`
	Height int  `form:"height" json:"height" binding:"required,min=1"`
	Color  *int `form:"color" json:"color" binding:"required"`
}

// WaitResponse 是绘制与等待时间接口的响应。
type WaitResponse struct {
	WaitSeconds float64 `json:"wait_seconds"`
}

// RateLimitedResponse 是冷却未结束时绘制接口返回的 429 响应。
type RateLimitedResponse struct {
	Error       int     `json:"error"`
	WaitSeconds float64 `json:"wait_seconds"`
}

// ErrorDTO 是通用的错误响应。
type ErrorDTO struct {
	Error string `json:"error"`
}
