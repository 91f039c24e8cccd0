package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// stockEntry 一个商品的库存及其锁
type stockEntry struct {
	mu  sync.Mutex
	inv inventory.Inventory
}

// InventoryRepository 内存库存仓储（按商品加行锁）
type InventoryRepository struct {
	mu      sync.RWMutex
	entries map[uint]*stockEntry
}

// NewInventoryRepository 创建内存库存仓储
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{entries: make(map[uint]*stockEntry)}
}

var _ inventory.Repository = (*InventoryRepository)(nil)

func (r *InventoryRepository) entry(productID uint) (*stockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[productID]
	if !ok {
		return nil, apperrors.WithDetail(inventory.ErrInventoryNotFound, "product=%d", productID)
	}
	return e, nil
}

// mutate 在商品行锁内执行一次检查+修改，成功后登记反向操作
// 事务内行锁持有到事务结束：回滚前其他事务看不到这次修改腾出的库存
func (r *InventoryRepository) mutate(ctx context.Context, productID uint, fn func(inv *inventory.Inventory) (undo func(inv *inventory.Inventory), err error)) (*inventory.Inventory, error) {
	e, err := r.entry(productID)
	if err != nil {
		return nil, err
	}

	unlock := lockRow(ctx, &e.mu)
	defer unlock()

	undo, err := fn(&e.inv)
	if err != nil {
		return nil, err
	}
	e.inv.UpdatedAt = time.Now()
	snapshot := e.inv

	onRollback(ctx, func() { undo(&e.inv) })
	return &snapshot, nil
}

// read 读取快照；当前事务已持有行锁时直接读
func (e *stockEntry) read(ctx context.Context) inventory.Inventory {
	if heldByTx(ctx, &e.mu) {
		return e.inv
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inv
}

func (r *InventoryRepository) Get(ctx context.Context, productID uint) (*inventory.Inventory, error) {
	e, err := r.entry(productID)
	if err != nil {
		return nil, err
	}
	snapshot := e.read(ctx)
	return &snapshot, nil
}

func (r *InventoryRepository) GetMany(ctx context.Context, productIDs []uint) (map[uint]*inventory.Inventory, error) {
	result := make(map[uint]*inventory.Inventory, len(productIDs))
	for _, id := range productIDs {
		inv, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		result[id] = inv
	}
	return result, nil
}

func (r *InventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[inv.ProductID]; ok {
		return apperrors.WithDetail(inventory.ErrInventoryExists, "product=%d", inv.ProductID)
	}
	r.entries[inv.ProductID] = &stockEntry{inv: *inv}

	productID := inv.ProductID
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.entries, productID)
		r.mu.Unlock()
	})
	return nil
}

func (r *InventoryRepository) Reserve(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.mutate(ctx, productID, func(inv *inventory.Inventory) (func(*inventory.Inventory), error) {
		if inv.AvailableForSale() < qty {
			return nil, inventory.ErrInsufficientStock
		}
		inv.QtyReserved += qty
		return func(inv *inventory.Inventory) { inv.QtyReserved -= qty }, nil
	})
}

func (r *InventoryRepository) Release(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.mutate(ctx, productID, func(inv *inventory.Inventory) (func(*inventory.Inventory), error) {
		if inv.QtyReserved < qty {
			return nil, apperrors.WithDetail(inventory.ErrInvalidState,
				"release product=%d qty=%d reserved=%d", productID, qty, inv.QtyReserved)
		}
		inv.QtyReserved -= qty
		return func(inv *inventory.Inventory) { inv.QtyReserved += qty }, nil
	})
}

func (r *InventoryRepository) Commit(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.mutate(ctx, productID, func(inv *inventory.Inventory) (func(*inventory.Inventory), error) {
		if inv.QtyReserved < qty || inv.QtyAvailable < qty {
			return nil, apperrors.WithDetail(inventory.ErrInvalidState,
				"commit product=%d qty=%d reserved=%d available=%d", productID, qty, inv.QtyReserved, inv.QtyAvailable)
		}
		inv.QtyAvailable -= qty
		inv.QtyReserved -= qty
		return func(inv *inventory.Inventory) {
			inv.QtyAvailable += qty
			inv.QtyReserved += qty
		}, nil
	})
}

func (r *InventoryRepository) AddStock(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.mutate(ctx, productID, func(inv *inventory.Inventory) (func(*inventory.Inventory), error) {
		inv.QtyAvailable += qty
		return func(inv *inventory.Inventory) { inv.QtyAvailable -= qty }, nil
	})
}

func (r *InventoryRepository) SetStock(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.mutate(ctx, productID, func(inv *inventory.Inventory) (func(*inventory.Inventory), error) {
		if qty < inv.QtyReserved {
			return nil, apperrors.WithDetail(inventory.ErrStockBelowReserved,
				"product=%d qty=%d reserved=%d", productID, qty, inv.QtyReserved)
		}
		delta := qty - inv.QtyAvailable
		inv.QtyAvailable = qty
		return func(inv *inventory.Inventory) { inv.QtyAvailable -= delta }, nil
	})
}

func (r *InventoryRepository) UpdateReorderLevel(ctx context.Context, productID uint, level int) (*inventory.Inventory, error) {
	return r.mutate(ctx, productID, func(inv *inventory.Inventory) (func(*inventory.Inventory), error) {
		old := inv.ReorderLevel
		inv.ReorderLevel = level
		return func(inv *inventory.Inventory) { inv.ReorderLevel = old }, nil
	})
}

func (r *InventoryRepository) ListLowStock(ctx context.Context) ([]*inventory.Inventory, error) {
	return r.filter(ctx, func(inv *inventory.Inventory) bool { return inv.IsLowStock() }), nil
}

func (r *InventoryRepository) ListOutOfStock(ctx context.Context) ([]*inventory.Inventory, error) {
	return r.filter(ctx, func(inv *inventory.Inventory) bool { return inv.IsOutOfStock() }), nil
}

func (r *InventoryRepository) ListWithReserved(ctx context.Context) ([]*inventory.Inventory, error) {
	return r.filter(ctx, func(inv *inventory.Inventory) bool { return inv.QtyReserved > 0 }), nil
}

func (r *InventoryRepository) Totals(ctx context.Context) (*inventory.Totals, error) {
	totals := &inventory.Totals{}
	for _, inv := range r.filter(ctx, func(*inventory.Inventory) bool { return true }) {
		totals.Products++
		totals.TotalUnits += int64(inv.QtyAvailable)
		totals.ReservedUnits += int64(inv.QtyReserved)
		if inv.IsLowStock() {
			totals.LowStock++
		}
		if inv.IsOutOfStock() {
			totals.OutOfStock++
		}
	}
	return totals, nil
}

// filter 按商品ID排序返回快照
func (r *InventoryRepository) filter(ctx context.Context, keep func(inv *inventory.Inventory) bool) []*inventory.Inventory {
	r.mu.RLock()
	entries := make([]*stockEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	result := make([]*inventory.Inventory, 0)
	for _, e := range entries {
		snapshot := e.read(ctx)
		if keep(&snapshot) {
			result = append(result, &snapshot)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result
}

// InventoryLogRepository 内存库存日志
type InventoryLogRepository struct {
	mu     sync.RWMutex
	logs   []*inventory.ChangeLog
	nextID uint
}

// NewInventoryLogRepository 创建内存库存日志仓储
func NewInventoryLogRepository() *InventoryLogRepository {
	return &InventoryLogRepository{}
}

var _ inventory.LogRepository = (*InventoryLogRepository)(nil)

func (r *InventoryLogRepository) Create(ctx context.Context, log *inventory.ChangeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	log.ID = r.nextID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	stored := *log
	r.logs = append(r.logs, &stored)

	id := log.ID
	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, l := range r.logs {
			if l.ID == id {
				r.logs = append(r.logs[:i], r.logs[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *InventoryLogRepository) ListByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*inventory.ChangeLog, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*inventory.ChangeLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].ProductID == productID {
			copied := *r.logs[i]
			matched = append(matched, &copied)
		}
	}
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *InventoryLogRepository) ListByOrder(ctx context.Context, orderID uint) ([]*inventory.ChangeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*inventory.ChangeLog, 0)
	for _, l := range r.logs {
		if l.OrderID == orderID {
			copied := *l
			result = append(result, &copied)
		}
	}
	return result, nil
}

// paginate page从1开始
func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return items
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
