package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
)

// TestTxManager_Rollback fn返回错误时,事务内的全部写入被撤销
func TestTxManager_Rollback(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	invRepo := NewInventoryRepository()
	orderRepo := NewOrderRepository()
	carts := NewCartStore()

	require.NoError(t, invRepo.Create(ctx, inventory.NewInventory(1, 10, 0, "")))
	_, err := carts.Add(ctx, 9, 1, 2)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := invRepo.Reserve(ctx, 1, 4); err != nil {
			return err
		}
		o := order.NewOrder("ORD-X", 9, []order.Item{order.NewItem(1, "t", "s", decimal.NewFromInt(1), 4)}, order.Quote{}, "", "", "")
		if err := orderRepo.Create(ctx, o); err != nil {
			return err
		}
		if err := carts.Clear(ctx, 9); err != nil {
			return err
		}
		// 嵌套事务加入外层
		return tx.Transaction(ctx, func(ctx context.Context) error {
			if _, err := invRepo.Commit(ctx, 1, 4); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	inv, err := invRepo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.QtyAvailable)
	assert.Equal(t, 0, inv.QtyReserved)

	_, err = orderRepo.FindByOrderNo(ctx, "ORD-X")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	items, _ := carts.ListByUser(ctx, 9)
	assert.Len(t, items, 1)
}

// TestTxManager_DifferentProductsDoNotBlock 不同商品的事务可以同时进行
func TestTxManager_DifferentProductsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	repo := NewInventoryRepository()
	require.NoError(t, repo.Create(ctx, inventory.NewInventory(1, 10, 0, "")))
	require.NoError(t, repo.Create(ctx, inventory.NewInventory(2, 10, 0, "")))

	done := make(chan error, 1)
	err := tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Reserve(ctx, 1, 1); err != nil {
			return err
		}
		// 事务仍持有商品1的行锁,另一个事务预留商品2
		go func() {
			done <- tx.Transaction(context.Background(), func(ctx context.Context) error {
				_, err := repo.Reserve(ctx, 2, 1)
				return err
			})
		}()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			return errors.New("商品2的事务被商品1的事务阻塞")
		}
	})
	require.NoError(t, err)

	inv, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.QtyReserved)
}

// TestTxManager_RowLockHeldUntilRollback 事务释放的预留在回滚前不能被别人抢走
func TestTxManager_RowLockHeldUntilRollback(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	repo := NewInventoryRepository()
	require.NoError(t, repo.Create(ctx, inventory.NewInventory(1, 5, 0, "")))
	_, err := repo.Reserve(ctx, 1, 5)
	require.NoError(t, err)

	released := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		<-released
		_, err := repo.Reserve(ctx, 1, 5)
		result <- err
	}()

	boom := errors.New("boom")
	err = tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Release(ctx, 1, 5); err != nil {
			return err
		}
		close(released)
		time.Sleep(50 * time.Millisecond)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// 等到回滚之后才拿到行锁,此时5件仍被占用
	assert.ErrorIs(t, <-result, inventory.ErrInsufficientStock)
	inv, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.QtyReserved)
	assert.LessOrEqual(t, inv.QtyReserved, inv.QtyAvailable)
}

// TestOrderRepository_FindByIDForUpdate 订单行锁互斥,同一事务可重复加锁
func TestOrderRepository_FindByIDForUpdate(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	repo := NewOrderRepository()
	o := order.NewOrder("ORD-L", 1, []order.Item{order.NewItem(1, "t", "s", decimal.NewFromInt(3), 1)}, order.Quote{}, "", "", "")
	require.NoError(t, repo.Create(ctx, o))

	locked := make(chan struct{})
	seen := make(chan order.Status, 1)
	go func() {
		<-locked
		_ = tx.Transaction(context.Background(), func(ctx context.Context) error {
			current, err := repo.FindByIDForUpdate(ctx, o.ID)
			if err != nil {
				return err
			}
			seen <- current.Status
			return nil
		})
	}()

	err := tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repo.FindByIDForUpdate(ctx, o.ID); err != nil {
			return err
		}
		close(locked)
		time.Sleep(50 * time.Millisecond)
		if _, err := repo.FindByIDForUpdate(ctx, o.ID); err != nil {
			return err
		}
		return repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled)
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, <-seen, "第二个事务在第一个提交后才读到订单")

	_, err = repo.FindByIDForUpdate(ctx, 404)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestOrderRepository_ListByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	for i := 1; i <= 3; i++ {
		o := order.NewOrder(fmt.Sprintf("ORD-%d", i), 1, []order.Item{order.NewItem(1, "t", "s", decimal.NewFromInt(1), 1)}, order.Quote{}, "", "", "")
		require.NoError(t, repo.Create(ctx, o))
	}
	require.NoError(t, repo.UpdateStatus(ctx, 2, order.StatusPending, order.StatusConfirmed))

	pending, total, err := repo.ListByStatus(ctx, order.StatusPending, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, pending, 1)
	assert.Equal(t, uint(3), pending[0].ID, "新订单在前")

	confirmed, total, err := repo.ListByStatus(ctx, order.StatusConfirmed, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "ORD-2", confirmed[0].OrderNo)
}

func TestOrderRepository_CAS(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	o := order.NewOrder("ORD-1", 1, []order.Item{order.NewItem(1, "t", "s", decimal.NewFromInt(3), 1)}, order.Quote{}, "", "", "")
	require.NoError(t, repo.Create(ctx, o))
	assert.NotZero(t, o.Items[0].ID)
	assert.Equal(t, o.ID, o.Items[0].OrderID)

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusConfirmed))
	err := repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled)
	assert.ErrorIs(t, err, order.ErrStatusConflict, "旧状态不匹配时CAS失败")

	err = repo.UpdateStatus(ctx, 404, order.StatusPending, order.StatusConfirmed)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	// 返回的是拷贝
	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	found.Items[0].Quantity = 99
	again, _ := repo.FindByID(ctx, o.ID)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestCartStore(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()
	s.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	_, err := s.Add(ctx, 1, 10, 1)
	require.NoError(t, err)
	s.now = time.Now

	item, err := s.Add(ctx, 1, 11, 2)
	require.NoError(t, err)
	merged, err := s.Add(ctx, 1, 11, 3)
	require.NoError(t, err)
	assert.Equal(t, item.ID, merged.ID, "同一商品合并为一行")
	assert.Equal(t, 5, merged.Quantity)

	_, err = s.Add(ctx, 1, 12, 0)
	assert.Error(t, err)

	n, err := s.DeleteOlderThan(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	items, _ := s.ListByUser(ctx, 1)
	require.Len(t, items, 1)
	assert.Equal(t, uint(11), items[0].ProductID)
}
