package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appcart "github.com/xiebiao/storefront/internal/application/cart"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/memory"
)

type fixture struct {
	carts     *memory.CartStore
	catalog   *memory.Catalog
	ledger    *inventory.Ledger
	validator *appcart.Validator
}

func newFixture(t *testing.T, opts ...appcart.Option) *fixture {
	t.Helper()
	f := &fixture{
		carts:   memory.NewCartStore(),
		catalog: memory.NewCatalog(),
	}
	f.ledger = inventory.NewLedger(memory.NewInventoryRepository(), memory.NewInventoryLogRepository(), memory.NewTxManager(), zaptest.NewLogger(t))
	f.validator = appcart.NewValidator(f.carts, f.catalog, f.ledger, zaptest.NewLogger(t), opts...)
	return f
}

func (f *fixture) product(t *testing.T, id uint, stock int, active bool) {
	t.Helper()
	f.catalog.Put(catalog.Product{ID: id, Title: "P", SKU: "SKU", Price: decimal.NewFromInt(10), IsActive: active})
	_, err := f.ledger.CreateForProduct(context.Background(), id, stock, 0, "")
	require.NoError(t, err)
}

func (f *fixture) add(t *testing.T, userID, productID uint, qty int) *cart.Item {
	t.Helper()
	item, err := f.carts.Add(context.Background(), userID, productID, qty)
	require.NoError(t, err)
	return item
}

func TestSnapshot_ReportsProblems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, 1, 10, true)
	f.product(t, 2, 10, false)
	f.product(t, 3, 1, true)

	f.add(t, 7, 1, 2)
	f.add(t, 7, 2, 1)
	f.add(t, 7, 3, 5)
	f.add(t, 7, 99, 1) // 商品不存在

	snap, err := f.validator.Snapshot(ctx, 7)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 4)

	assert.Equal(t, appcart.ProblemNone, snap.Lines[0].Problem)
	assert.Equal(t, 10, snap.Lines[0].Available)
	assert.Equal(t, appcart.ProblemProductInactive, snap.Lines[1].Problem)
	assert.Equal(t, appcart.ProblemInsufficientStock, snap.Lines[2].Problem)
	assert.Equal(t, 1, snap.Lines[2].Available)
	assert.Equal(t, appcart.ProblemProductMissing, snap.Lines[3].Problem)
	assert.Nil(t, snap.Lines[3].Product)

	assert.False(t, snap.Valid())
	assert.Len(t, snap.Problems(), 3)
}

func TestValidateForCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, 1, 3, true)

	// 空购物车不能结账
	ok, err := f.validator.ValidateForCheckout(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	f.add(t, 7, 1, 3)
	ok, err = f.validator.ValidateForCheckout(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	// 其他订单预留后,可售数量不够
	_, err = f.ledger.Reserve(ctx, 1, 1, 500)
	require.NoError(t, err)
	ok, err = f.validator.ValidateForCheckout(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncWithInventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, 1, 10, true)
	f.product(t, 2, 10, false)
	f.product(t, 3, 2, true)
	f.product(t, 4, 0, true)

	ok := f.add(t, 7, 1, 1)
	inactive := f.add(t, 7, 2, 1)
	clamped := f.add(t, 7, 3, 5)
	empty := f.add(t, 7, 4, 1)

	adjustments, err := f.validator.SyncWithInventory(ctx, 7)
	require.NoError(t, err)
	require.Len(t, adjustments, 3)

	byItem := make(map[uint]appcart.Adjustment)
	for _, adj := range adjustments {
		byItem[adj.ItemID] = adj
	}
	assert.Equal(t, appcart.AdjustRemoved, byItem[inactive.ID].Action)
	assert.Equal(t, appcart.AdjustClamped, byItem[clamped.ID].Action)
	assert.Equal(t, 5, byItem[clamped.ID].From)
	assert.Equal(t, 2, byItem[clamped.ID].To)
	assert.Equal(t, appcart.AdjustRemoved, byItem[empty.ID].Action)

	items, err := f.carts.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ok.ID, items[0].ID)
	assert.Equal(t, 2, items[1].Quantity)

	// 修正后可以结账
	valid, err := f.validator.ValidateForCheckout(ctx, 7)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestRemoveExpired(t *testing.T) {
	ctx := context.Background()
	later := time.Now().Add(31 * 24 * time.Hour)
	f := newFixture(t, appcart.WithClock(func() time.Time { return later }))
	f.product(t, 1, 10, true)
	f.add(t, 7, 1, 1)
	f.add(t, 8, 1, 1)

	removed, err := f.validator.RemoveExpired(ctx, cart.DefaultMaxAge)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = f.validator.RemoveExpired(ctx, cart.DefaultMaxAge)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, 1, 10, true)
	f.product(t, 2, 10, false)
	uc := appcart.NewAddItemUseCase(f.carts, f.catalog)

	item, err := uc.Execute(ctx, appcart.AddItemRequest{UserID: 7, ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	item, err = uc.Execute(ctx, appcart.AddItemRequest{UserID: 7, ProductID: 1, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	_, err = uc.Execute(ctx, appcart.AddItemRequest{UserID: 7, ProductID: 2, Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrProductInactive)

	_, err = uc.Execute(ctx, appcart.AddItemRequest{UserID: 7, ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = uc.Execute(ctx, appcart.AddItemRequest{UserID: 7, ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
}
