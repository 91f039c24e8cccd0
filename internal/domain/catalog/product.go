// Package catalog 商品目录(外部协作方的只读视图)
//
// 商品的增删改由目录服务负责,结账引擎只读取价格、重量、上下架状态。
package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

var (
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")
	ErrProductInactive = apperrors.New(apperrors.ErrCodeProductInactive, "商品已下架")
)

// Product 商品
type Product struct {
	ID       uint
	Title    string
	SKU      string
	Price    decimal.Decimal // 当前售价(>=0)
	Weight   decimal.Decimal // 单件重量(>=0,运费计算用)
	IsActive bool
}

// Catalog 商品目录
type Catalog interface {
	// GetByID 不存在返回ErrProductNotFound
	GetByID(ctx context.Context, id uint) (*Product, error)

	// GetByIDs 批量查询,不存在的商品不在结果中
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*Product, error)
}
