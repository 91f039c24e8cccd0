package maintenance_test

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appcart "github.com/xiebiao/storefront/internal/application/cart"
	"github.com/xiebiao/storefront/internal/application/maintenance"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/user"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/storefront/pkg/metrics"
)

type capturePublisher struct {
	keys []string
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

type harness struct {
	jobs     *maintenance.Jobs
	ledger   *inventory.Ledger
	carts    *memory.CartStore
	catalog  *memory.Catalog
	checkout *apporder.CreateOrderUseCase
	orders   *memory.OrderRepository
	events   *capturePublisher
}

func newHarness(t *testing.T, cfg maintenance.Config, now func() time.Time) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	tx := memory.NewTxManager()
	h := &harness{
		carts:   memory.NewCartStore(),
		catalog: memory.NewCatalog(),
		orders:  memory.NewOrderRepository(),
		events:  &capturePublisher{},
	}
	users := memory.NewDirectory()
	users.Put(user.User{ID: 1, IsActive: true})

	h.ledger = inventory.NewLedger(memory.NewInventoryRepository(), memory.NewInventoryLogRepository(), tx, log)
	validator := appcart.NewValidator(h.carts, h.catalog, h.ledger, log, appcart.WithClock(now))
	lifecycle := apporder.NewLifecycleService(h.orders, h.ledger, tx, nil, order.NopPublisher{}, log)
	h.checkout = apporder.NewCreateOrderUseCase(users, h.carts, validator, h.ledger, h.orders,
		order.NewLocalNumberGenerator(), tx, order.NopPublisher{},
		apporder.CheckoutConfig{Pricing: order.DefaultPricingPolicy(), SagaTimeout: time.Second}, log)
	h.jobs = maintenance.NewJobs(lifecycle, validator, h.ledger, h.events, cfg, log)
	return h
}

func (h *harness) product(t *testing.T, id uint, stock, reorderLevel int) {
	t.Helper()
	h.catalog.Put(catalog.Product{ID: id, SKU: "SKU", Price: decimal.NewFromInt(3), IsActive: true})
	_, err := h.ledger.CreateForProduct(context.Background(), id, stock, reorderLevel, "")
	require.NoError(t, err)
}

func TestReconcileStalePending_Batches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, maintenance.Config{PendingTimeout: 0, BatchSize: 2}, time.Now)
	h.product(t, 1, 100, 0)

	for i := 0; i < 5; i++ {
		_, err := h.carts.Add(ctx, 1, 1, 2)
		require.NoError(t, err)
		_, err = h.checkout.Execute(ctx, apporder.CreateOrderRequest{UserID: 1})
		require.NoError(t, err)
	}
	inv, err := h.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.QtyReserved)

	time.Sleep(5 * time.Millisecond)
	n, err := h.jobs.ReconcileStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	inv, err = h.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, inv.QtyReserved)
	assert.Equal(t, 100, inv.QtyAvailable)
}

func TestReconcileStalePending_KeepsFreshOrders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, maintenance.Config{PendingTimeout: time.Hour}, time.Now)
	h.product(t, 1, 10, 0)
	_, err := h.carts.Add(ctx, 1, 1, 2)
	require.NoError(t, err)
	_, err = h.checkout.Execute(ctx, apporder.CreateOrderRequest{UserID: 1})
	require.NoError(t, err)

	n, err := h.jobs.ReconcileStalePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepExpiredCarts(t *testing.T) {
	ctx := context.Background()
	future := func() time.Time { return time.Now().Add(48 * time.Hour) }
	h := newHarness(t, maintenance.Config{CartMaxAge: 24 * time.Hour}, future)
	h.product(t, 1, 10, 0)
	_, err := h.carts.Add(ctx, 1, 1, 1)
	require.NoError(t, err)

	removed, err := h.jobs.SweepExpiredCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestCheckLowStock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, maintenance.Config{}, time.Now)
	h.product(t, 1, 3, 5)  // 低库存
	h.product(t, 2, 50, 5) // 正常
	h.product(t, 3, 5, 5)  // 等于阈值也算低库存

	low, err := h.jobs.CheckLowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, low, 2)
	assert.Equal(t, []string{maintenance.EventLowStock, maintenance.EventLowStock}, h.events.keys)

	var m dto.Metric
	require.NoError(t, metrics.LowStockItems.Write(&m))
	assert.Equal(t, float64(2), m.GetGauge().GetValue())
}
