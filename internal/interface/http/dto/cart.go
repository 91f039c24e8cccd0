package dto

import (
	appcart "github.com/xiebiao/storefront/internal/application/cart"
)

// AddCartItemRequest 加入购物车
type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required" example:"1"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// CartLineResponse 购物车行(附带实时价格和可售数量)
type CartLineResponse struct {
	ItemID    uint   `json:"item_id" example:"1"`
	ProductID uint   `json:"product_id" example:"1"`
	Title     string `json:"title,omitempty" example:"Go语言实战"`
	SKU       string `json:"sku,omitempty" example:"BK-0001"`
	UnitPrice string `json:"unit_price,omitempty" example:"59.00"`
	Quantity  int    `json:"quantity" example:"2"`
	Available int    `json:"available" example:"10"`
	Problem   string `json:"problem,omitempty" example:"INSUFFICIENT_STOCK"`
}

// CartResponse 购物车
type CartResponse struct {
	Valid bool               `json:"valid" example:"true"`
	Lines []CartLineResponse `json:"lines"`
}

// CartValidationResponse 结账前校验结果
type CartValidationResponse struct {
	Valid    bool               `json:"valid" example:"false"`
	Problems []CartLineResponse `json:"problems"`
}

// CartSyncResponse 同步结果
type CartSyncResponse struct {
	Adjustments []appcart.Adjustment `json:"adjustments"`
}

// ToCartResponse 快照转HTTP响应
func ToCartResponse(snap *appcart.Snapshot) *CartResponse {
	return &CartResponse{
		Valid: snap.Valid(),
		Lines: toCartLines(snap.Lines),
	}
}

// ToCartValidationResponse 只返回有问题的行
func ToCartValidationResponse(snap *appcart.Snapshot) *CartValidationResponse {
	return &CartValidationResponse{
		Valid:    snap.Valid(),
		Problems: toCartLines(snap.Problems()),
	}
}

func toCartLines(lines []appcart.Line) []CartLineResponse {
	out := make([]CartLineResponse, len(lines))
	for i, line := range lines {
		out[i] = CartLineResponse{
			ItemID:    line.Item.ID,
			ProductID: line.Item.ProductID,
			Quantity:  line.Item.Quantity,
			Available: line.Available,
			Problem:   string(line.Problem),
		}
		// 商品已被删除时Product为nil
		if p := line.Product; p != nil {
			out[i].Title = p.Title
			out[i].SKU = p.SKU
			out[i].UnitPrice = p.Price.StringFixed(2)
		}
	}
	return out
}
