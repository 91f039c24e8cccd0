package user

import (
	"context"
)

// Directory 用户目录接口
// 由infrastructure层实现(MySQL只读模型或内存实现)
type Directory interface {
	// GetByID 不存在返回ErrUserNotFound
	GetByID(ctx context.Context, id uint) (*User, error)
}
