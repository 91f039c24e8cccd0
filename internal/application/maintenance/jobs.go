// Package maintenance 后台维护任务(由cron调度,也可以通过storefrontctl手动触发)
package maintenance

import (
	"context"
	"time"

	"go.uber.org/zap"

	appcart "github.com/xiebiao/storefront/internal/application/cart"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/pkg/metrics"
)

// EventLowStock 低库存事件路由键
const EventLowStock = "inventory.low_stock"

// LowStockEvent 低库存事件
type LowStockEvent struct {
	ProductID    uint      `json:"product_id"`
	QtyAvailable int       `json:"qty_available"`
	QtyReserved  int       `json:"qty_reserved"`
	ReorderLevel int       `json:"reorder_level"`
	DetectedAt   time.Time `json:"detected_at"`
}

// Config 维护任务参数
type Config struct {
	PendingTimeout time.Duration // PENDING订单超时时间
	CartMaxAge     time.Duration // 购物车条目保留时间
	BatchSize      int           // 单次对账最多处理的订单数
}

// Jobs 维护任务集合
type Jobs struct {
	lifecycle *apporder.LifecycleService
	validator *appcart.Validator
	ledger    *inventory.Ledger
	publisher order.EventPublisher
	cfg       Config
	logger    *zap.Logger
}

// NewJobs 创建维护任务
func NewJobs(
	lifecycle *apporder.LifecycleService,
	validator *appcart.Validator,
	ledger *inventory.Ledger,
	publisher order.EventPublisher,
	cfg Config,
	logger *zap.Logger,
) *Jobs {
	metrics.InitMetrics()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Jobs{
		lifecycle: lifecycle,
		validator: validator,
		ledger:    ledger,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("maintenance"),
	}
}

// ReconcileStalePending 回收超时未支付的订单
// 预留不会自动过期,这个任务是"下单后用户跑了"和"结账中途进程崩溃"两种情况的兜底
// 每批最多BatchSize个,一批满了继续下一批,直到没有超时订单
func (j *Jobs) ReconcileStalePending(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := j.lifecycle.ExpirePending(ctx, j.cfg.PendingTimeout, j.cfg.BatchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < j.cfg.BatchSize {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

// SweepExpiredCarts 清理过期的购物车条目
func (j *Jobs) SweepExpiredCarts(ctx context.Context) (int64, error) {
	return j.validator.RemoveExpired(ctx, j.cfg.CartMaxAge)
}

// CheckLowStock 低库存检查:更新指标、记日志、发事件
func (j *Jobs) CheckLowStock(ctx context.Context) ([]*inventory.Inventory, error) {
	low, err := j.ledger.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetGauge(metrics.LowStockItems, float64(len(low)))

	now := time.Now()
	for _, inv := range low {
		j.logger.Warn("低库存",
			zap.Uint("product_id", inv.ProductID),
			zap.Int("qty_available", inv.QtyAvailable),
			zap.Int("reorder_level", inv.ReorderLevel),
		)
		event := LowStockEvent{
			ProductID:    inv.ProductID,
			QtyAvailable: inv.QtyAvailable,
			QtyReserved:  inv.QtyReserved,
			ReorderLevel: inv.ReorderLevel,
			DetectedAt:   now,
		}
		if err := j.publisher.Publish(ctx, EventLowStock, event); err != nil {
			j.logger.Warn("发布低库存事件失败", zap.Uint("product_id", inv.ProductID), zap.Error(err))
		}
	}
	return low, nil
}
