package cart

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/inventory"
)

// Problem 购物车行的问题类型
type Problem string

const (
	ProblemNone              Problem = ""
	ProblemProductMissing    Problem = "PRODUCT_MISSING"
	ProblemProductInactive   Problem = "PRODUCT_INACTIVE"
	ProblemInsufficientStock Problem = "INSUFFICIENT_STOCK"
)

// Line 购物车行 + 商品/库存的实时视图
type Line struct {
	Item      *cart.Item
	Product   *catalog.Product // 商品已不存在时为nil
	Available int              // 当前可售数量(没有库存记录视为0)
	Problem   Problem
}

// Snapshot 购物车快照
type Snapshot struct {
	UserID  uint
	Lines   []Line
	TakenAt time.Time
}

// IsEmpty 购物车是否为空
func (s *Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Valid 非空且每一行都没有问题
func (s *Snapshot) Valid() bool {
	if s.IsEmpty() {
		return false
	}
	for _, line := range s.Lines {
		if line.Problem != ProblemNone {
			return false
		}
	}
	return true
}

// Problems 有问题的行
func (s *Snapshot) Problems() []Line {
	var result []Line
	for _, line := range s.Lines {
		if line.Problem != ProblemNone {
			result = append(result, line)
		}
	}
	return result
}

// AdjustAction 同步库存时对购物车行做的调整
type AdjustAction string

const (
	AdjustRemoved AdjustAction = "REMOVED"
	AdjustClamped AdjustAction = "CLAMPED"
)

// Adjustment 一次调整记录
type Adjustment struct {
	ItemID    uint         `json:"item_id"`
	ProductID uint         `json:"product_id"`
	Action    AdjustAction `json:"action"`
	Reason    Problem      `json:"reason"`
	From      int          `json:"from"`
	To        int          `json:"to"`
}

// Option 校验器选项
type Option func(*Validator)

// WithClock 替换时间源(测试用)
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// Validator 购物车快照与校验
// 设计说明:
// 1. 每次调用都重新读取商品和库存,不缓存(结账前的校验必须是最新数据)
// 2. 商品和库存都是批量查询,一个购物车只有两次读
// 3. 这里的校验只是"提前告知",真正防超卖的是Ledger.Reserve的原子条件更新
type Validator struct {
	carts   cart.Store
	catalog catalog.Catalog
	ledger  *inventory.Ledger
	logger  *zap.Logger
	now     func() time.Time
}

// NewValidator 创建购物车校验器
func NewValidator(carts cart.Store, cat catalog.Catalog, ledger *inventory.Ledger, logger *zap.Logger, opts ...Option) *Validator {
	v := &Validator{
		carts:   carts,
		catalog: cat,
		ledger:  ledger,
		logger:  logger.Named("cart"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Snapshot 购物车快照(每行附带实时商品、可售数量和问题)
func (v *Validator) Snapshot(ctx context.Context, userID uint) (*Snapshot, error) {
	items, err := v.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{UserID: userID, Lines: make([]Line, 0, len(items)), TakenAt: v.now()}
	if len(items) == 0 {
		return snap, nil
	}

	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := v.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	stocks, err := v.ledger.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		line := Line{Item: item, Product: products[item.ProductID]}
		if inv, ok := stocks[item.ProductID]; ok {
			line.Available = inv.AvailableForSale()
		}

		switch {
		case line.Product == nil:
			line.Problem = ProblemProductMissing
		case !line.Product.IsActive:
			line.Problem = ProblemProductInactive
		case item.Quantity > line.Available:
			line.Problem = ProblemInsufficientStock
		}
		snap.Lines = append(snap.Lines, line)
	}
	return snap, nil
}

// ValidateForCheckout 购物车能否结账
// 空购物车、商品下架或不存在、数量超过可售数量,都返回false
func (v *Validator) ValidateForCheckout(ctx context.Context, userID uint) (bool, error) {
	snap, err := v.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return snap.Valid(), nil
}

// SyncWithInventory 按实时数据修正购物车
// 规则:
//   - 商品下架或不存在 → 删除
//   - 数量超过可售数量 → 调整为可售数量;可售为0则删除
func (v *Validator) SyncWithInventory(ctx context.Context, userID uint) ([]Adjustment, error) {
	snap, err := v.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	adjustments := make([]Adjustment, 0)
	for _, line := range snap.Problems() {
		adj := Adjustment{
			ItemID:    line.Item.ID,
			ProductID: line.Item.ProductID,
			Reason:    line.Problem,
			From:      line.Item.Quantity,
		}

		if line.Problem == ProblemInsufficientStock && line.Available > 0 {
			if err := v.carts.UpdateQuantity(ctx, line.Item.ID, line.Available); err != nil {
				return adjustments, err
			}
			adj.Action = AdjustClamped
			adj.To = line.Available
		} else {
			if err := v.carts.Remove(ctx, line.Item.ID); err != nil {
				return adjustments, err
			}
			adj.Action = AdjustRemoved
		}
		adjustments = append(adjustments, adj)
	}

	if len(adjustments) > 0 {
		v.logger.Info("购物车已按库存修正", zap.Uint("user_id", userID), zap.Int("adjustments", len(adjustments)))
	}
	return adjustments, nil
}

// RemoveExpired 删除加入时间超过maxAge的购物车条目
func (v *Validator) RemoveExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		maxAge = cart.DefaultMaxAge
	}
	removed, err := v.carts.DeleteOlderThan(ctx, v.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		v.logger.Info("已清理过期购物车条目", zap.Int64("removed", removed), zap.Duration("max_age", maxAge))
	}
	return removed, nil
}
