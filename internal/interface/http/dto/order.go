package dto

import (
	"github.com/xiebiao/storefront/internal/domain/order"
)

// timeLayout 接口统一的时间格式
const timeLayout = "2006-01-02 15:04:05"

// CheckoutRequest HTTP结账请求
// 不接收商品和价格:商品来自购物车,价格以下单时的商品目录为准
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required,max=500" example:"上海市浦东新区世纪大道100号"`
	PaymentMethod   string `json:"payment_method" binding:"max=50" example:"alipay"`
	Notes           string `json:"notes" binding:"max=500" example:"工作日送货"`
}

// OrderItemResponse 订单明细
type OrderItemResponse struct {
	ProductID    uint   `json:"product_id" example:"1"`
	ProductTitle string `json:"product_title" example:"Go语言实战"`
	ProductSKU   string `json:"product_sku" example:"BK-0001"`
	Quantity     int    `json:"quantity" example:"2"`
	UnitPrice    string `json:"unit_price" example:"59.00"`
	TotalPrice   string `json:"total_price" example:"118.00"`
}

// OrderResponse 订单详情
// 金额统一返回两位小数字符串,避免前端浮点误差
type OrderResponse struct {
	ID              uint                `json:"id" example:"1"`
	OrderNo         string              `json:"order_no" example:"20240115000001"`
	UserID          uint                `json:"user_id" example:"1"`
	Status          string              `json:"status" example:"PENDING"`
	PaymentStatus   string              `json:"payment_status" example:"PENDING"`
	Subtotal        string              `json:"subtotal" example:"118.00"`
	TaxAmount       string              `json:"tax_amount" example:"9.44"`
	ShippingCost    string              `json:"shipping_cost" example:"7.00"`
	DiscountAmount  string              `json:"discount_amount" example:"0.00"`
	TotalPrice      string              `json:"total_price" example:"134.44"`
	ShippingAddress string              `json:"shipping_address" example:"上海市浦东新区世纪大道100号"`
	PaymentMethod   string              `json:"payment_method" example:"alipay"`
	Notes           string              `json:"notes,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       string              `json:"created_at" example:"2024-01-15 10:30:00"`
	UpdatedAt       string              `json:"updated_at" example:"2024-01-15 10:30:00"`
}

// OrderListItem 订单列表项(不含明细)
type OrderListItem struct {
	ID            uint   `json:"id" example:"1"`
	OrderNo       string `json:"order_no" example:"20240115000001"`
	Status        string `json:"status" example:"PENDING"`
	PaymentStatus string `json:"payment_status" example:"PENDING"`
	TotalPrice    string `json:"total_price" example:"134.44"`
	ItemCount     int    `json:"item_count" example:"2"`
	CreatedAt     string `json:"created_at" example:"2024-01-15 10:30:00"`
}

// UpdateOrderStatusRequest 管理员修改订单状态
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required" example:"SHIPPED"`
}

// PaymentCallbackRequest 支付结果回调
type PaymentCallbackRequest struct {
	OrderID       uint   `json:"order_id" binding:"required" example:"1"`
	Status        string `json:"status" binding:"required" example:"PAID"`
	TransactionID string `json:"transaction_id" example:"tx-20240115-0001"`
}

// ToOrderResponse 领域对象转HTTP响应
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:    item.ProductID,
			ProductTitle: item.ProductTitle,
			ProductSKU:   item.ProductSKU,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice.StringFixed(2),
			TotalPrice:   item.TotalPrice.StringFixed(2),
		}
	}
	return &OrderResponse{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		PaymentStatus:   o.PaymentStatus.String(),
		Subtotal:        o.Subtotal().StringFixed(2),
		TaxAmount:       o.TaxAmount.StringFixed(2),
		ShippingCost:    o.ShippingCost.StringFixed(2),
		DiscountAmount:  o.DiscountAmount.StringFixed(2),
		TotalPrice:      o.TotalPrice.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt.Format(timeLayout),
		UpdatedAt:       o.UpdatedAt.Format(timeLayout),
	}
}

// ToOrderListItems 订单列表转换
func ToOrderListItems(orders []*order.Order) []OrderListItem {
	list := make([]OrderListItem, len(orders))
	for i, o := range orders {
		list[i] = OrderListItem{
			ID:            o.ID,
			OrderNo:       o.OrderNo,
			Status:        o.Status.String(),
			PaymentStatus: o.PaymentStatus.String(),
			TotalPrice:    o.TotalPrice.StringFixed(2),
			ItemCount:     len(o.Items),
			CreatedAt:     o.CreatedAt.Format(timeLayout),
		}
	}
	return list
}
