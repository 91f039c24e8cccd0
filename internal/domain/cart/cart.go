package cart

import (
	"context"
	"time"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// DefaultMaxAge 购物车条目的过期时间(30天)
const DefaultMaxAge = 30 * 24 * time.Hour

var (
	ErrCartEmpty            = apperrors.New(apperrors.ErrCodeCartEmpty, "购物车为空")
	ErrCartValidationFailed = apperrors.New(apperrors.ErrCodeCartValidationFailed, "购物车中有商品已下架或库存不足,请刷新购物车")
	ErrItemNotFound         = apperrors.New(apperrors.ErrCodeNotFound, "购物车条目不存在")
	ErrInvalidQuantity      = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)

// Item 购物车条目
// (UserID, ProductID)唯一;同一商品重复加入时数量累加
type Item struct {
	ID        uint
	UserID    uint
	ProductID uint
	Quantity  int
	CreatedAt time.Time
}

// Store 购物车存储
type Store interface {
	// ListByUser 按加入时间正序
	ListByUser(ctx context.Context, userID uint) ([]*Item, error)

	// Add 加入购物车,已存在则累加数量
	Add(ctx context.Context, userID, productID uint, qty int) (*Item, error)

	// UpdateQuantity 修改数量(qty>=1)
	UpdateQuantity(ctx context.Context, itemID uint, qty int) error

	// Remove 删除单个条目
	Remove(ctx context.Context, itemID uint) error

	// Clear 清空用户购物车
	Clear(ctx context.Context, userID uint) error

	// DeleteOlderThan 删除cutoff之前加入的条目,返回删除数量
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
