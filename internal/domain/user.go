// Package domain 定义了画布引擎与参考服务端共享的核心数据结构与错误。
package domain

import "time"

// User 表示一个可以在画布上放置像素的用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text;not null"` // bcrypt 哈希后的密码
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email"`
	IsAdmin   bool      `gorm:"not null;default:false"` // 管理员可以使用区域填充接口
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
