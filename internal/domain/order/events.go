package order

import (
	"context"
	"time"
)

// 事件路由键
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// CreatedEvent 订单已创建
type CreatedEvent struct {
	OrderID    uint      `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	UserID     uint      `json:"user_id"`
	TotalPrice string    `json:"total_price"`
	ItemCount  int       `json:"item_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatusChangedEvent 订单状态已变化
type StatusChangedEvent struct {
	OrderID       uint      `json:"order_id"`
	OrderNo       string    `json:"order_no"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	PaymentStatus string    `json:"payment_status"`
	ChangedAt     time.Time `json:"changed_at"`
}

// EventPublisher 领域事件发布者
// 发布发生在事务提交之后,失败只记日志,不影响已完成的业务操作
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// NopPublisher 不发布任何事件(未启用消息队列时使用)
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
