package order

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/metrics"
	"github.com/xiebiao/storefront/pkg/tracing"
)

// RefundHook 订单进入REFUNDED时的回调
// 退款是否退回库存(退货入库)由业务决定,默认什么都不做
type RefundHook interface {
	OnRefund(ctx context.Context, o *order.Order) error
}

// NopRefundHook 默认退款回调
type NopRefundHook struct{}

func (NopRefundHook) OnRefund(context.Context, *order.Order) error { return nil }

// LifecycleService 订单生命周期(状态机的执行者)
//
// 教学要点:
// 1. 状态写入和库存副作用在同一个事务里:要么都生效,要么都不生效
// 2. 状态写入是CAS(WHERE status = 旧状态),两个并发请求只有一个能带着副作用成功
// 3. 事件在事务提交之后发布,失败只记日志
// 4. 事务内先锁订单行(FindByIDForUpdate),与结账的逐行预留互斥;
//    多个商品按商品ID升序加锁,避免两个事务交叉等待
type LifecycleService struct {
	orders    order.Repository
	ledger    *inventory.Ledger
	tx        inventory.TxManager
	refunds   RefundHook
	publisher order.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(
	orders order.Repository,
	ledger *inventory.Ledger,
	tx inventory.TxManager,
	refunds RefundHook,
	publisher order.EventPublisher,
	logger *zap.Logger,
) *LifecycleService {
	metrics.InitMetrics()
	if refunds == nil {
		refunds = NopRefundHook{}
	}
	return &LifecycleService{
		orders:    orders,
		ledger:    ledger,
		tx:        tx,
		refunds:   refunds,
		publisher: publisher,
		logger:    logger.Named("lifecycle"),
		now:       time.Now,
	}
}

// UpdateStatus 订单状态流转(管理员操作)
//
// 副作用:
//   - → CANCELLED:释放订单占用的全部预留
//   - → DELIVERED:逐行Commit(扣减实物库存)
//   - → REFUNDED:调用RefundHook,不自动回补库存
func (s *LifecycleService) UpdateStatus(ctx context.Context, orderID uint, to order.Status) (*order.Order, error) {
	return s.transition(ctx, orderID, to, nil, "管理员取消")
}

// Cancel 取消订单(只允许PENDING/CONFIRMED)
func (s *LifecycleService) Cancel(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusCancelled, func(o *order.Order) error {
		if !o.Status.IsCancellable() {
			return apperrors.WithDetail(order.ErrOrderNotCancellable, "order=%d status=%s", o.ID, o.Status)
		}
		return nil
	}, "用户取消")
}

// UpdatePaymentStatus 支付状态更新(支付网关回调)
// 1. 与当前状态相同:幂等返回(网关会重试回调)
// 2. PENDING订单收到PAID:自动推进到CONFIRMED(同一事务)
func (s *LifecycleService) UpdatePaymentStatus(ctx context.Context, orderID uint, to order.PaymentStatus) (result *order.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "UpdatePaymentStatus")
	defer func() { tracing.EndSpan(span, err) }()

	var confirmed bool
	var paymentFrom order.PaymentStatus
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		paymentFrom = o.PaymentStatus
		if o.PaymentStatus == to {
			result = o
			return nil
		}
		if !order.CanTransitionPayment(o.PaymentStatus, to) {
			return apperrors.WithDetail(order.ErrInvalidPaymentTransition, "order=%d %s → %s", o.ID, o.PaymentStatus, to)
		}
		if err := s.orders.UpdatePaymentStatus(ctx, o.ID, o.PaymentStatus, to); err != nil {
			return err
		}
		o.PaymentStatus = to

		if to == order.PaymentPaid && o.Status == order.StatusPending {
			if err := s.orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusConfirmed); err != nil {
				return err
			}
			if err := o.TransitionTo(order.StatusConfirmed); err != nil {
				return err
			}
			confirmed = true
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if paymentFrom != to {
		s.logger.Info("支付状态已更新",
			zap.Uint("order_id", orderID),
			zap.String("from", paymentFrom.String()),
			zap.String("to", to.String()),
		)
	}
	if confirmed {
		s.recordTransition(order.StatusPending, order.StatusConfirmed, nil)
		s.publishStatusChanged(ctx, result, order.StatusPending)
	}
	return result, nil
}

// ExpirePending 取消超时未支付的PENDING订单,返回取消数量
// 释放量来自账本日志(订单实际占用的预留),结账中途崩溃留下的半成品订单也能正确回收
func (s *LifecycleService) ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := s.orders.ListPendingBefore(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, o := range stale {
		_, err := s.transition(ctx, o.ID, order.StatusCancelled, func(current *order.Order) error {
			if current.Status != order.StatusPending {
				return order.ErrStatusConflict
			}
			return nil
		}, "超时未支付")
		switch {
		case err == nil:
			cancelled++
			metrics.IncCounter(metrics.StalePendingCancelledTotal)
		case errors.Is(err, order.ErrStatusConflict):
			// 并发支付/取消,跳过
			s.logger.Debug("订单状态已变化,跳过", zap.Uint("order_id", o.ID))
		default:
			return cancelled, err
		}
	}

	if cancelled > 0 {
		s.logger.Info("已回收超时订单", zap.Int("cancelled", cancelled), zap.Duration("older_than", olderThan))
	}
	return cancelled, nil
}

// transition 状态流转的公共流程
// check在事务内、CAS之前执行,用于额外的前置条件
func (s *LifecycleService) transition(
	ctx context.Context,
	orderID uint,
	to order.Status,
	check func(o *order.Order) error,
	cancelReason string,
) (result *order.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Transition")
	defer func() { tracing.EndSpan(span, err) }()

	var from order.Status
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status

		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		if !o.CanTransitionTo(to) {
			return apperrors.WithDetail(order.ErrInvalidTransition, "order=%d %s → %s", o.ID, o.Status, to)
		}
		if err := s.orders.UpdateStatus(ctx, o.ID, from, to); err != nil {
			return err
		}

		switch to {
		case order.StatusCancelled:
			if err := s.releaseAll(ctx, o, cancelReason); err != nil {
				return err
			}
		case order.StatusDelivered:
			if err := s.commitAll(ctx, o); err != nil {
				return err
			}
		case order.StatusRefunded:
			if err := s.refunds.OnRefund(ctx, o); err != nil {
				return err
			}
		}

		if err := o.TransitionTo(to); err != nil {
			return err
		}
		result = o
		return nil
	})

	if from != 0 {
		s.recordTransition(from, to, err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("订单状态已变更",
		zap.Uint("order_id", result.ID),
		zap.String("order_no", result.OrderNo),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	s.publishStatusChanged(ctx, result, from)
	return result, nil
}

// releaseAll 释放订单当前占用的全部预留
func (s *LifecycleService) releaseAll(ctx context.Context, o *order.Order, reason string) error {
	held, err := s.ledger.OrderNetReserved(ctx, o.ID)
	if err != nil {
		return err
	}
	for _, item := range byProduct(o.Items) {
		qty := held[item.ProductID]
		if qty <= 0 {
			continue
		}
		if _, err := s.ledger.Release(ctx, item.ProductID, qty, o.ID, reason); err != nil {
			return err
		}
		delete(held, item.ProductID)
	}
	return nil
}

// commitAll 逐行扣减实物库存
func (s *LifecycleService) commitAll(ctx context.Context, o *order.Order) error {
	for _, item := range byProduct(o.Items) {
		if _, err := s.ledger.Commit(ctx, item.ProductID, item.Quantity, o.ID); err != nil {
			return err
		}
	}
	return nil
}

// byProduct 按商品ID升序的明细副本(固定加锁顺序)
func byProduct(items []order.Item) []order.Item {
	sorted := make([]order.Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

func (s *LifecycleService) recordTransition(from, to order.Status, err error) {
	result := "success"
	if err != nil {
		result = "rejected"
	}
	metrics.IncCounterVec(metrics.OrderTransitionsTotal, map[string]string{
		"from":   from.String(),
		"to":     to.String(),
		"result": result,
	})
}

func (s *LifecycleService) publishStatusChanged(ctx context.Context, o *order.Order, from order.Status) {
	event := order.StatusChangedEvent{
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		From:          from.String(),
		To:            o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		ChangedAt:     s.now(),
	}
	if err := s.publisher.Publish(ctx, order.EventOrderStatusChanged, event); err != nil {
		s.logger.Warn("发布状态变更事件失败", zap.Uint("order_id", o.ID), zap.Error(err))
	}
}
