package cart

import (
	"context"

	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/catalog"
)

// AddItemUseCase 加入购物车用例
// 只拒绝不存在或已下架的商品;库存不在这里检查,结账前由Validator统一校验
type AddItemUseCase struct {
	carts   cart.Store
	catalog catalog.Catalog
}

// NewAddItemUseCase 创建加购用例
func NewAddItemUseCase(carts cart.Store, cat catalog.Catalog) *AddItemUseCase {
	return &AddItemUseCase{carts: carts, catalog: cat}
}

// AddItemRequest 加购请求DTO
type AddItemRequest struct {
	UserID    uint // 从JWT中提取
	ProductID uint
	Quantity  int
}

// Execute 执行加购
func (uc *AddItemUseCase) Execute(ctx context.Context, req AddItemRequest) (*cart.Item, error) {
	if req.Quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	product, err := uc.catalog.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, catalog.ErrProductInactive
	}

	return uc.carts.Add(ctx, req.UserID, req.ProductID, req.Quantity)
}
