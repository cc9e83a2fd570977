package domain

import "time"

// Pixel 是一次已被服务端接受的像素放置记录 (历史)。
// 画布的当前状态保存在 Redis 中, MySQL 中只保留历史以便查询与恢复。
type Pixel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	Username  string    `gorm:"type:varchar(191);not null"` // 冗余存储, 查询像素信息时无需联表
	X         int       `gorm:"index:idx_pixel_xy,priority:1;not null"`
	Y         int       `gorm:"index:idx_pixel_xy,priority:2;not null"`
	Color     int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_pixel_xy,priority:3;autoCreateTime"`
}

// PixelInfo 是像素查询接口返回给客户端的信息。
type PixelInfo struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Color     int       `json:"color"`
	Username  string    `json:"user_name"`
	Timestamp time.Time `json:"timestamp"`
}
