package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appcart "github.com/xiebiao/storefront/internal/application/cart"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/user"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/metrics"
	"github.com/xiebiao/storefront/pkg/saga"
	"github.com/xiebiao/storefront/pkg/tracing"
)

const tracerName = "storefront/order"

// CreateOrderUseCase 结账用例
// 教学要点:这是整个项目最核心的用例
// 涉及:购物车校验、价格冻结、库存预留、失败补偿
type CreateOrderUseCase struct {
	users     user.Directory
	carts     cart.Store
	validator *appcart.Validator
	ledger    *inventory.Ledger
	orders    order.Repository
	numbers   order.NumberGenerator
	tx        inventory.TxManager
	pricing   order.PricingPolicy
	publisher order.EventPublisher
	timeout   time.Duration
	logger    *zap.Logger
}

// CheckoutConfig 结账参数
type CheckoutConfig struct {
	Pricing     order.PricingPolicy
	SagaTimeout time.Duration
}

// NewCreateOrderUseCase 创建结账用例
func NewCreateOrderUseCase(
	users user.Directory,
	carts cart.Store,
	validator *appcart.Validator,
	ledger *inventory.Ledger,
	orders order.Repository,
	numbers order.NumberGenerator,
	tx inventory.TxManager,
	publisher order.EventPublisher,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CreateOrderUseCase {
	metrics.InitMetrics()
	return &CreateOrderUseCase{
		users:     users,
		carts:     carts,
		validator: validator,
		ledger:    ledger,
		orders:    orders,
		numbers:   numbers,
		tx:        tx,
		pricing:   cfg.Pricing,
		publisher: publisher,
		timeout:   cfg.SagaTimeout,
		logger:    logger.Named("checkout"),
	}
}

// CreateOrderRequest 结账请求DTO
type CreateOrderRequest struct {
	UserID          uint // 买家用户ID(从JWT中提取)
	ShippingAddress string
	PaymentMethod   string
	Notes           string
}

// Execute 执行结账
// 教学重点:跨多个资源的"全有或全无"
//
// 为什么不用一个大事务包住所有步骤?
//   - 每个商品的预留是独立的原子操作,不同商品之间不持有锁
//   - 大事务会让热门商品的库存行被长时间锁住,所有结账排队
//
// 所以用Saga:
//  1. 创建订单(订单+明细一次写入)      补偿:删除订单(仍是PENDING时)
//  2. 逐行预留库存                      补偿:释放该行仍被订单占用的预留
//  3. 清空购物车                        (最后一步,无需补偿)
//
// 任何一步失败,已完成的步骤逆序补偿,返回原始错误
//
// 订单在第1步就已可见,买家取消和超时对账可能插在两次预留之间。
// 所以每次预留和每次补偿都在事务里先锁订单行:
//   - 预留前订单必须仍是PENDING,否则返回ErrStatusConflict,整个结账回滚
//   - 补偿按账本日志释放,取消已经释放过的部分不会再释放一次
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (result *order.Order, err error) {
	start := time.Now()
	metrics.IncGauge(metrics.CheckoutsInProgress)
	ctx, span := tracing.StartSpan(ctx, tracerName, "CreateOrder")
	defer func() {
		metrics.DecGauge(metrics.CheckoutsInProgress)
		metrics.ObserveHistogram(metrics.CheckoutDuration, time.Since(start).Seconds())
		metrics.IncCounterVec(metrics.CheckoutsTotal, map[string]string{"result": checkoutResult(err)})
		tracing.EndSpan(span, err)
	}()

	// ========================================
	// 步骤1:用户校验
	// ========================================
	u, err := uc.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := u.CanCheckout(); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤2:购物车校验(实时读取商品和库存)
	// ========================================
	snap, err := uc.validator.Snapshot(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if snap.IsEmpty() {
		return nil, cart.ErrCartEmpty
	}
	if err := rejectProblems(snap.Problems()); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤3:计价(价格在这里冻结到订单明细)
	// ========================================
	// 教学要点:使用目录中的当前价格,不信任前端传来的价格
	items := make([]order.Item, len(snap.Lines))
	lines := make([]order.PricedLine, len(snap.Lines))
	for i, line := range snap.Lines {
		p := line.Product
		items[i] = order.NewItem(p.ID, p.Title, p.SKU, p.Price, line.Item.Quantity)
		lines[i] = order.PricedLine{UnitPrice: p.Price, Quantity: line.Item.Quantity, Weight: p.Weight}
	}
	quote := uc.pricing.Quote(lines)

	orderNo, err := uc.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}
	o := order.NewOrder(orderNo, req.UserID, items, quote, req.ShippingAddress, req.PaymentMethod, req.Notes)

	// ========================================
	// 步骤4:Saga
	// ========================================
	s := saga.NewSaga(uc.timeout, saga.WithLogger(uc.logger), saga.WithName("checkout:"+orderNo))

	s.AddStep("create order",
		func(ctx context.Context) error {
			return uc.orders.Create(ctx, o)
		},
		func(ctx context.Context) error {
			return uc.tx.Transaction(ctx, func(ctx context.Context) error {
				current, err := uc.orders.FindByIDForUpdate(ctx, o.ID)
				if err != nil {
					return err
				}
				// 已被取消的订单保留记录,预留已由取消释放
				if current.Status != order.StatusPending {
					return nil
				}
				return uc.orders.Delete(ctx, o.ID)
			})
		},
	)

	for _, item := range items {
		s.AddStep(fmt.Sprintf("reserve %s", item.ProductSKU),
			func(ctx context.Context) error {
				return uc.tx.Transaction(ctx, func(ctx context.Context) error {
					if err := uc.lockPending(ctx, o.ID); err != nil {
						return err
					}
					_, err := uc.ledger.Reserve(ctx, item.ProductID, item.Quantity, o.ID)
					return err
				})
			},
			func(ctx context.Context) error {
				return uc.tx.Transaction(ctx, func(ctx context.Context) error {
					if _, err := uc.orders.FindByIDForUpdate(ctx, o.ID); err != nil {
						return err
					}
					held, err := uc.ledger.OrderNetReserved(ctx, o.ID)
					if err != nil {
						return err
					}
					qty := min(held[item.ProductID], item.Quantity)
					if qty <= 0 {
						return nil
					}
					_, err = uc.ledger.Release(ctx, item.ProductID, qty, o.ID, "结账失败回滚")
					return err
				})
			},
		)
	}

	s.AddStep("clear cart",
		func(ctx context.Context) error {
			return uc.carts.Clear(ctx, req.UserID)
		},
		nil,
	)

	if err := s.Execute(ctx); err != nil {
		return nil, err
	}

	// 清空购物车之后订单仍可能被取消,返回存储中的最新状态
	if current, err := uc.orders.FindByID(ctx, o.ID); err == nil {
		o = current
	}

	uc.logger.Info("订单已创建",
		zap.String("order_no", o.OrderNo),
		zap.Uint("order_id", o.ID),
		zap.Uint("user_id", o.UserID),
		zap.String("total", o.TotalPrice.StringFixed(2)),
	)

	// ========================================
	// 步骤5:发布事件(尽力而为,失败不影响订单)
	// ========================================
	event := order.CreatedEvent{
		OrderID:    o.ID,
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice.StringFixed(2),
		ItemCount:  len(o.Items),
		CreatedAt:  o.CreatedAt,
	}
	if err := uc.publisher.Publish(ctx, order.EventOrderCreated, event); err != nil {
		uc.logger.Warn("发布订单创建事件失败", zap.String("order_no", o.OrderNo), zap.Error(err))
	}

	return o, nil
}

// lockPending 锁住订单行并确认订单仍是PENDING
func (uc *CreateOrderUseCase) lockPending(ctx context.Context, orderID uint) error {
	current, err := uc.orders.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Status != order.StatusPending {
		return apperrors.WithDetail(order.ErrStatusConflict,
			"结账期间订单已变更 order=%d status=%s", orderID, current.Status)
	}
	return nil
}

// rejectProblems 校验失败时的错误
// 只是库存不足(没有下架/缺失的商品)时返回ErrInsufficientStock,调用方可以减少数量重试;
// 其他情况返回ErrCartValidationFailed,需要先同步购物车
func rejectProblems(problems []appcart.Line) error {
	if len(problems) == 0 {
		return nil
	}
	for _, line := range problems {
		if line.Problem != appcart.ProblemInsufficientStock {
			return apperrors.WithDetail(cart.ErrCartValidationFailed,
				"%d个条目有问题,首个: product=%d %s", len(problems), line.Item.ProductID, line.Problem)
		}
	}
	first := problems[0]
	return apperrors.WithDetail(inventory.ErrInsufficientStock,
		"product=%d want=%d available=%d", first.Item.ProductID, first.Item.Quantity, first.Available)
}

// checkoutResult 结账结果标签
func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, cart.ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, cart.ErrCartValidationFailed):
		return "validation_failed"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, order.ErrStatusConflict):
		return "order_changed"
	case errors.Is(err, user.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, user.ErrUserInactive):
		return "user_inactive"
	default:
		return "error"
	}
}
