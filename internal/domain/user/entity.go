package user

import (
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

var (
	ErrUserNotFound = apperrors.New(apperrors.ErrCodeUserNotFound, "用户不存在")
	ErrUserInactive = apperrors.New(apperrors.ErrCodeUserInactive, "用户已停用")
)

// User 用户(用户目录的只读视图)
// 注册、登录、密码由用户服务负责,结账只关心用户是否存在且可用
type User struct {
	ID       uint
	Email    string
	Nickname string
	IsActive bool
}

// CanCheckout 是否允许下单
func (u *User) CanCheckout() error {
	if !u.IsActive {
		return ErrUserInactive
	}
	return nil
}
