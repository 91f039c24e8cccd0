package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/storefront/internal/domain/cart"
)

// CartStore 内存购物车
type CartStore struct {
	mu     sync.RWMutex
	items  map[uint]*cart.Item
	nextID uint
	now    func() time.Time
}

// NewCartStore 创建内存购物车
func NewCartStore() *CartStore {
	return &CartStore{items: make(map[uint]*cart.Item), now: time.Now}
}

var _ cart.Store = (*CartStore)(nil)

func (s *CartStore) ListByUser(ctx context.Context, userID uint) ([]*cart.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*cart.Item, 0)
	for _, item := range s.items {
		if item.UserID == userID {
			copied := *item
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *CartStore) Add(ctx context.Context, userID, productID uint, qty int) (*cart.Item, error) {
	if qty <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += qty
			copied := *item
			return &copied, nil
		}
	}

	s.nextID++
	item := &cart.Item{
		ID:        s.nextID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: s.now(),
	}
	s.items[item.ID] = item
	copied := *item
	return &copied, nil
}

func (s *CartStore) UpdateQuantity(ctx context.Context, itemID uint, qty int) error {
	if qty <= 0 {
		return cart.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return cart.ErrItemNotFound
	}
	item.Quantity = qty
	return nil
}

func (s *CartStore) Remove(ctx context.Context, itemID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[itemID]; !ok {
		return cart.ErrItemNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]*cart.Item, 0)
	for id, item := range s.items {
		if item.UserID == userID {
			removed = append(removed, item)
			delete(s.items, id)
		}
	}

	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, item := range removed {
			s.items[item.ID] = item
		}
	})
	return nil
}

func (s *CartStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, item := range s.items {
		if item.CreatedAt.Before(cutoff) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}
