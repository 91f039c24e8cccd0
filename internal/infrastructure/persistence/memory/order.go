package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/storefront/internal/domain/order"
)

// OrderRepository 内存订单仓储
type OrderRepository struct {
	mu         sync.RWMutex
	orders     map[uint]*order.Order
	nextID     uint
	nextItemID uint
	// rowLocks 订单行锁(FindByIDForUpdate)
	rowLocks map[uint]*sync.Mutex
}

// NewOrderRepository 创建内存订单仓储
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   make(map[uint]*order.Order),
		rowLocks: make(map[uint]*sync.Mutex),
	}
}

var _ order.Repository = (*OrderRepository)(nil)

// cloneOrder 深拷贝，调用方修改返回值不影响存储
func cloneOrder(o *order.Order) *order.Order {
	copied := *o
	copied.Items = make([]order.Item, len(o.Items))
	copy(copied.Items, o.Items)
	return &copied
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrInvalidOrderItems
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.OrderNo == o.OrderNo {
			return order.ErrOrderNoGenerate
		}
	}

	r.nextID++
	o.ID = r.nextID
	for i := range o.Items {
		r.nextItemID++
		o.Items[i].ID = r.nextItemID
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = cloneOrder(o)

	id := o.ID
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.orders, id)
		r.mu.Unlock()
	})
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

// FindByIDForUpdate 先拿订单行锁再读取，事务内锁持有到事务结束
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*order.Order, error) {
	r.mu.Lock()
	if _, ok := r.orders[id]; !ok {
		r.mu.Unlock()
		return nil, order.ErrOrderNotFound
	}
	mu, ok := r.rowLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		r.rowLocks[id] = mu
	}
	r.mu.Unlock()

	unlock := lockRow(ctx, mu)
	defer unlock()
	// 等锁期间订单可能已被删除(结账补偿)
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			return cloneOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *OrderRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	r.mu.RLock()
	matched := make([]*order.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			matched = append(matched, cloneOrder(o))
		}
	}
	r.mu.RUnlock()

	// 新订单在前
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status, page, pageSize int) ([]*order.Order, int64, error) {
	r.mu.RLock()
	matched := make([]*order.Order, 0)
	for _, o := range r.orders {
		if o.Status == status {
			matched = append(matched, cloneOrder(o))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, from, to order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return order.ErrStatusConflict
	}
	prevUpdated := o.UpdatedAt
	o.Status = to
	o.UpdatedAt = time.Now()

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if o, ok := r.orders[id]; ok && o.Status == to {
			o.Status = from
			o.UpdatedAt = prevUpdated
		}
	})
	return nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id uint, from, to order.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.PaymentStatus != from {
		return order.ErrStatusConflict
	}
	prevUpdated := o.UpdatedAt
	o.PaymentStatus = to
	o.UpdatedAt = time.Now()

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if o, ok := r.orders[id]; ok && o.PaymentStatus == to {
			o.PaymentStatus = from
			o.UpdatedAt = prevUpdated
		}
	})
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	delete(r.orders, id)

	onRollback(ctx, func() {
		r.mu.Lock()
		r.orders[id] = o
		r.mu.Unlock()
	})
	return nil
}

func (r *OrderRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*order.Order, error) {
	r.mu.RLock()
	matched := make([]*order.Order, 0)
	for _, o := range r.orders {
		if o.Status == order.StatusPending && o.CreatedAt.Before(before) {
			matched = append(matched, cloneOrder(o))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
