package repository

import (
	"context"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByUsername 根据用户名查找用户, 不存在时返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID 根据用户 ID 查找用户, 不存在时返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save 保存用户信息。ID 为 0 时创建, 否则更新。
	// 用户名或邮箱冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error
}
