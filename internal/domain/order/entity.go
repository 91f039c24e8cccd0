package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单实体(聚合根)
// 教学要点:
// 1. Order是聚合根,Item是子实体,只通过Order访问
// 2. 金额使用decimal(避免浮点误差),只在持久化的最终值上四舍五入到分
// 3. 金额字段冗余存储,下单后不随商品改价而变化
type Order struct {
	ID              uint
	OrderNo         string // 订单号(业务主键,全局唯一)
	UserID          uint
	Status          Status
	PaymentStatus   PaymentStatus
	TotalPrice      decimal.Decimal // 小计+税+运费-优惠
	TaxAmount       decimal.Decimal
	ShippingCost    decimal.Decimal
	DiscountAmount  decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
	Notes           string
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item 订单明细
// 教学要点:
// 1. 单价、商品名、SKU都是下单时刻的快照,商品后续改价/下架不影响历史订单
// 2. 只保存ProductID,不持有商品对象(避免跨聚合引用)
type Item struct {
	ID           uint
	OrderID      uint
	ProductID    uint
	ProductTitle string
	ProductSKU   string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
}

// NewItem 创建订单明细,行金额 = 单价 × 数量
func NewItem(productID uint, title, sku string, unitPrice decimal.Decimal, qty int) Item {
	return Item{
		ProductID:    productID,
		ProductTitle: title,
		ProductSKU:   sku,
		Quantity:     qty,
		UnitPrice:    unitPrice,
		TotalPrice:   unitPrice.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// NewOrder 创建新订单(工厂方法)
// 初始状态固定为PENDING/PENDING
func NewOrder(orderNo string, userID uint, items []Item, quote Quote, shippingAddress, paymentMethod, notes string) *Order {
	now := time.Now()
	return &Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		TotalPrice:      quote.Total,
		TaxAmount:       quote.Tax,
		ShippingCost:    quote.Shipping,
		DiscountAmount:  quote.Discount,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		Notes:           notes,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CanTransitionTo 检查是否可以转换到目标状态
func (o *Order) CanTransitionTo(target Status) bool {
	return CanTransition(o.Status, target)
}

// TransitionTo 状态转换(只改内存,持久化由仓储的CAS写完成)
func (o *Order) TransitionTo(target Status) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Subtotal 商品小计
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.TotalPrice)
	}
	return sum
}

// TotalQuantity 商品总件数
func (o *Order) TotalQuantity() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}
