package inventory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/metrics"
)

// Ledger 库存账本（领域服务）
//
// 教学要点：
// 1. 库存计数器的唯一写入入口，其他地方不允许直接改字段
// 2. 每次变更 = 一次原子条件更新 + 一条日志，放在同一个事务里
// 3. 不同商品的预留互不影响，不存在跨商品的大锁
type Ledger struct {
	repo   Repository
	logs   LogRepository
	tx     TxManager
	logger *zap.Logger
}

// NewLedger 创建库存账本
func NewLedger(repo Repository, logs LogRepository, tx TxManager, logger *zap.Logger) *Ledger {
	metrics.InitMetrics()
	return &Ledger{
		repo:   repo,
		logs:   logs,
		tx:     tx,
		logger: logger.Named("ledger"),
	}
}

// Reserve 预留库存
// 可售数量不足返回ErrInsufficientStock，账本不变
func (l *Ledger) Reserve(ctx context.Context, productID uint, qty int, orderID uint) (*Inventory, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	inv, err := l.apply(ctx, "reserve", func(ctx context.Context) (*Inventory, *ChangeLog, error) {
		inv, err := l.repo.Reserve(ctx, productID, qty)
		if err != nil {
			return nil, nil, err
		}
		return inv, newLog(inv, ChangeTypeReserve, qty, orderID, ""), nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, apperrors.WithDetail(ErrInsufficientStock, "product=%d qty=%d", productID, qty)
		}
		return nil, err
	}
	return inv, nil
}

// Release 释放预留
// qty大于已预留说明上游有缺陷，返回ErrInvalidState并告警
func (l *Ledger) Release(ctx context.Context, productID uint, qty int, orderID uint, reason string) (*Inventory, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.apply(ctx, "release", func(ctx context.Context) (*Inventory, *ChangeLog, error) {
		inv, err := l.repo.Release(ctx, productID, qty)
		if err != nil {
			return nil, nil, err
		}
		return inv, newLog(inv, ChangeTypeRelease, qty, orderID, reason), nil
	})
}

// Commit 扣减实物库存并释放等量预留（订单送达）
// 两个计数器在同一条更新里变化，不会出现可售数量瞬间偏低
func (l *Ledger) Commit(ctx context.Context, productID uint, qty int, orderID uint) (*Inventory, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.apply(ctx, "commit", func(ctx context.Context) (*Inventory, *ChangeLog, error) {
		inv, err := l.repo.Commit(ctx, productID, qty)
		if err != nil {
			return nil, nil, err
		}
		return inv, newLog(inv, ChangeTypeCommit, qty, orderID, ""), nil
	})
}

// AddStock 补货（只接受正数）
func (l *Ledger) AddStock(ctx context.Context, productID uint, qty int, remark string) (*Inventory, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.apply(ctx, "restock", func(ctx context.Context) (*Inventory, *ChangeLog, error) {
		inv, err := l.repo.AddStock(ctx, productID, qty)
		if err != nil {
			return nil, nil, err
		}
		return inv, newLog(inv, ChangeTypeRestock, qty, 0, remark), nil
	})
}

// SetStock 盘点：直接设置实物库存
// 不能低于已预留数量，否则已下单的订单将无货可发
func (l *Ledger) SetStock(ctx context.Context, productID uint, qty int, remark string) (*Inventory, error) {
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	return l.apply(ctx, "adjust", func(ctx context.Context) (*Inventory, *ChangeLog, error) {
		before, err := l.repo.Get(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		inv, err := l.repo.SetStock(ctx, productID, qty)
		if err != nil {
			return nil, nil, err
		}
		return inv, newLog(inv, ChangeTypeAdjust, qty-before.QtyAvailable, 0, remark), nil
	})
}

// UpdateReorderLevel 修改补货阈值（不写变更日志，计数器不变）
func (l *Ledger) UpdateReorderLevel(ctx context.Context, productID uint, level int) (*Inventory, error) {
	if level < 0 {
		return nil, ErrInvalidQuantity
	}
	return l.repo.UpdateReorderLevel(ctx, productID, level)
}

// CreateForProduct 为新商品建立库存记录
func (l *Ledger) CreateForProduct(ctx context.Context, productID uint, qty, reorderLevel int, location string) (*Inventory, error) {
	if productID == 0 {
		return nil, ErrInvalidProductID
	}
	if qty < 0 || reorderLevel < 0 {
		return nil, ErrInvalidQuantity
	}

	inv := NewInventory(productID, qty, reorderLevel, location)
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := l.repo.Create(ctx, inv); err != nil {
			return err
		}
		if qty == 0 {
			return nil
		}
		return l.logs.Create(ctx, newLog(inv, ChangeTypeRestock, qty, 0, "初始库存"))
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("库存记录已创建", zap.Uint("product_id", productID), zap.Int("qty", qty))
	return inv, nil
}

// =========================================
// 只读查询（无副作用）
// =========================================

// Get 查询库存
func (l *Ledger) Get(ctx context.Context, productID uint) (*Inventory, error) {
	return l.repo.Get(ctx, productID)
}

// GetMany 批量查询库存
func (l *Ledger) GetMany(ctx context.Context, productIDs []uint) (map[uint]*Inventory, error) {
	return l.repo.GetMany(ctx, productIDs)
}

// AvailableQuantity 可售数量
func (l *Ledger) AvailableQuantity(ctx context.Context, productID uint) (int, error) {
	inv, err := l.repo.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return inv.AvailableForSale(), nil
}

// LowStock 低库存列表
func (l *Ledger) LowStock(ctx context.Context) ([]*Inventory, error) {
	return l.repo.ListLowStock(ctx)
}

// OutOfStock 无货列表
func (l *Ledger) OutOfStock(ctx context.Context) ([]*Inventory, error) {
	return l.repo.ListOutOfStock(ctx)
}

// WithReservedStock 有预留的库存列表
func (l *Ledger) WithReservedStock(ctx context.Context) ([]*Inventory, error) {
	return l.repo.ListWithReserved(ctx)
}

// Totals 汇总统计
func (l *Ledger) Totals(ctx context.Context) (*Totals, error) {
	return l.repo.Totals(ctx)
}

// History 商品的变更历史
func (l *Ledger) History(ctx context.Context, productID uint, page, pageSize int) ([]*ChangeLog, int64, error) {
	return l.logs.ListByProduct(ctx, productID, page, pageSize)
}

// OrderNetReserved 订单当前仍占用的预留（按商品）
// 由日志推算，不依赖订单明细，所以对"下单中途崩溃"留下的半成品订单同样准确
func (l *Ledger) OrderNetReserved(ctx context.Context, orderID uint) (map[uint]int, error) {
	logs, err := l.logs.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NetReserved(logs), nil
}

// apply 在事务中执行一次计数器变更并写日志，统一记录指标和异常
func (l *Ledger) apply(ctx context.Context, op string, fn func(ctx context.Context) (*Inventory, *ChangeLog, error)) (*Inventory, error) {
	var result *Inventory
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		inv, entry, err := fn(ctx)
		if err != nil {
			return err
		}
		if err := l.logs.Create(ctx, entry); err != nil {
			return err
		}
		result = inv
		return nil
	})

	switch {
	case err == nil:
		metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"op": op, "result": "success"})
		l.logger.Debug("库存已变更",
			zap.String("op", op),
			zap.Uint("product_id", result.ProductID),
			zap.Int("qty_available", result.QtyAvailable),
			zap.Int("qty_reserved", result.QtyReserved),
		)
	case errors.Is(err, ErrInvalidState):
		metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"op": op, "result": "invalid_state"})
		metrics.IncCounter(metrics.InvariantViolationsTotal)
		l.logger.Error("库存账本不变量被破坏", zap.String("op", op), zap.Error(err))
	case errors.Is(err, ErrInsufficientStock):
		metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"op": op, "result": "insufficient"})
	default:
		metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"op": op, "result": "error"})
	}
	return result, err
}
