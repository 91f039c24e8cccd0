package mysql_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
)

// 教学说明:需要真实MySQL,默认跳过
//
//	STOREFRONT_TEST_MYSQL_DSN="root:root@tcp(localhost:3306)/storefront_test?parseTime=true" \
//	  go test ./internal/infrastructure/persistence/mysql/...
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("未设置STOREFRONT_TEST_MYSQL_DSN,跳过MySQL集成测试")
	}
	db, err := gorm.Open(mysqldriver.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))
	require.NoError(t, db.Exec("DELETE FROM inventory_logs").Error)
	require.NoError(t, db.Exec("DELETE FROM inventory").Error)
	require.NoError(t, db.Exec("DELETE FROM order_items").Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	return db
}

func newLedger(t *testing.T, db *gorm.DB) *inventory.Ledger {
	return inventory.NewLedger(
		mysql.NewInventoryRepository(db),
		mysql.NewInventoryLogRepository(db),
		mysql.NewTxManager(db),
		zaptest.NewLogger(t),
	)
}

// TestReserve_NoOversell 20个并发预留抢5件库存,只能成功5个
func TestReserve_NoOversell(t *testing.T) {
	db := openTestDB(t)
	ledger := newLedger(t, db)
	ctx := context.Background()

	_, err := ledger.CreateForProduct(ctx, 1, 5, 0, "")
	require.NoError(t, err)

	var ok, rejected int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		orderID := uint(i + 1)
		g.Go(func() error {
			_, err := ledger.Reserve(ctx, 1, 1, orderID)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, inventory.ErrInsufficientStock):
				atomic.AddInt32(&rejected, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(5), ok)
	assert.Equal(t, int32(15), rejected)

	inv, err := ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.QtyReserved)
	assert.NoError(t, inv.Validate())
}

// TestLedger_LogMatchesCounters 计数器和变更日志在同一事务里
func TestLedger_LogMatchesCounters(t *testing.T) {
	db := openTestDB(t)
	ledger := newLedger(t, db)
	ctx := context.Background()

	_, err := ledger.CreateForProduct(ctx, 2, 10, 2, "B-01")
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, 2, 3, 42)
	require.NoError(t, err)
	_, err = ledger.Release(ctx, 2, 1, 42, "部分取消")
	require.NoError(t, err)

	net, err := ledger.OrderNetReserved(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{2: 2}, net)

	// 盘点不能低于已预留
	_, err = ledger.SetStock(ctx, 2, 1, "")
	assert.ErrorIs(t, err, inventory.ErrStockBelowReserved)

	logs, total, err := ledger.History(ctx, 2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)
}

// TestOrderRow_LockedUntilCommit FOR UPDATE持有到事务提交,另一个事务读到的是提交后的状态
func TestOrderRow_LockedUntilCommit(t *testing.T) {
	db := openTestDB(t)
	orders := mysql.NewOrderRepository(db)
	tx := mysql.NewTxManager(db)
	ctx := context.Background()

	items := []order.Item{order.NewItem(1, "t", "SKU-1", decimal.NewFromInt(2), 1)}
	o := order.NewOrder("ORD-LOCK-1", 7, items, order.Quote{}, "addr", "card", "")
	require.NoError(t, orders.Create(ctx, o))

	locked := make(chan struct{})
	seen := make(chan order.Status, 1)
	var g errgroup.Group
	g.Go(func() error {
		<-locked
		return tx.Transaction(ctx, func(ctx context.Context) error {
			current, err := orders.FindByIDForUpdate(ctx, o.ID)
			if err != nil {
				return err
			}
			seen <- current.Status
			return nil
		})
	})

	err := tx.Transaction(ctx, func(ctx context.Context) error {
		current, err := orders.FindByIDForUpdate(ctx, o.ID)
		if err != nil {
			return err
		}
		assert.Len(t, current.Items, 1)
		close(locked)
		time.Sleep(100 * time.Millisecond)
		return orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled)
	})
	require.NoError(t, err)
	require.NoError(t, g.Wait())
	assert.Equal(t, order.StatusCancelled, <-seen)

	cancelled, total, err := orders.ListByStatus(ctx, order.StatusCancelled, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "ORD-LOCK-1", cancelled[0].OrderNo)

	_, total, err = orders.ListByStatus(ctx, order.StatusPending, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
