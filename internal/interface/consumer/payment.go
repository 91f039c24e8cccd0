// Package consumer 消息队列入口(支付网关回调)
//
// 支付网关把结果发布到 payment.* 路由键,消息体:
//
//	{"order_id": 42, "status": "PAID", "transaction_id": "tx-123"}
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/mq"
)

// PaymentMessage 支付回调消息
type PaymentMessage struct {
	OrderID       uint   `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// PaymentUpdater 更新支付状态(由LifecycleService实现)
type PaymentUpdater interface {
	UpdatePaymentStatus(ctx context.Context, orderID uint, status order.PaymentStatus) (*order.Order, error)
}

// Deduper 消息去重(Redis实现;未启用Redis时为nil,依赖UpdatePaymentStatus自身的幂等)
type Deduper interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// PaymentHandler 支付回调处理器
type PaymentHandler struct {
	payments PaymentUpdater
	dedup    Deduper
	logger   *zap.Logger
}

// NewPaymentHandler 创建支付回调处理器
func NewPaymentHandler(payments PaymentUpdater, dedup Deduper, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, dedup: dedup, logger: logger.Named("payment")}
}

// Handle 处理一条支付消息
// 返回值决定Ack/Nack:
//   - 解析失败、状态非法、订单不存在:包裹mq.ErrPermanent,丢弃(重试也不会成功)
//   - 其他错误(数据库故障等):重新入队
func (h *PaymentHandler) Handle(ctx context.Context, msg mq.Message) error {
	var pm PaymentMessage
	if err := json.Unmarshal(msg.Body, &pm); err != nil {
		return fmt.Errorf("%w: 消息格式错误: %v", mq.ErrPermanent, err)
	}
	status, err := order.ParsePaymentStatus(pm.Status)
	if err != nil || pm.OrderID == 0 {
		return fmt.Errorf("%w: order_id=%d status=%q", mq.ErrPermanent, pm.OrderID, pm.Status)
	}

	key := dedupKey(msg, pm)
	if h.dedup != nil && key != "" {
		ok, err := h.dedup.Acquire(ctx, key, 24*time.Hour)
		if err != nil {
			return err
		}
		if !ok {
			h.logger.Debug("重复的支付消息,跳过", zap.String("key", key))
			return nil
		}
	}

	if err := h.Apply(ctx, pm.OrderID, status); err != nil {
		if h.dedup != nil && key != "" && !errors.Is(err, mq.ErrPermanent) {
			if relErr := h.dedup.Release(ctx, key); relErr != nil {
				h.logger.Warn("释放去重标记失败", zap.String("key", key), zap.Error(relErr))
			}
		}
		return err
	}
	return nil
}

// Apply 应用支付结果(HTTP回调入口也走这里)
func (h *PaymentHandler) Apply(ctx context.Context, orderID uint, status order.PaymentStatus) error {
	o, err := h.payments.UpdatePaymentStatus(ctx, orderID, status)
	if err != nil {
		if isPermanent(err) {
			h.logger.Warn("支付回调无法应用", zap.Uint("order_id", orderID), zap.String("status", status.String()), zap.Error(err))
			return fmt.Errorf("%w: %w", mq.ErrPermanent, err)
		}
		return err
	}
	h.logger.Info("支付回调已处理",
		zap.Uint("order_id", o.ID),
		zap.String("payment_status", o.PaymentStatus.String()),
		zap.String("status", o.Status.String()),
	)
	return nil
}

// isPermanent 业务错误(4xx)重试也不会成功
func isPermanent(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code < 50000 && !errors.Is(err, order.ErrStatusConflict)
}

func dedupKey(msg mq.Message, pm PaymentMessage) string {
	if pm.TransactionID != "" {
		return fmt.Sprintf("payment:%s:%s", pm.TransactionID, pm.Status)
	}
	if msg.ID != "" {
		return "payment:msg:" + msg.ID
	}
	return ""
}
