package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	store.SeedProduct(domain.Product{ID: 1, Name: "X", Price: decimal.NewFromInt(10), Stock: 5}, "x.png")
	store.SeedProduct(domain.Product{ID: 2, Name: "Y", Price: decimal.NewFromInt(5), Stock: 1}, "")
	store.SeedCustomer(domain.Customer{ID: 7, Name: "Ana", Email: "ana@example.com"})
	return store
}

func insertOrder(t *testing.T, store *MemoryStore, id string, userID *int64, createdAt time.Time, status domain.OrderStatus) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(tx ports.OrderTx) error {
		if err := tx.InsertOrder(context.Background(), domain.Order{
			ID: id, UserID: userID, Status: status, ShippingAddress: "addr",
			TotalAmount: decimal.NewFromInt(10), CreatedAt: createdAt, UpdatedAt: createdAt,
		}); err != nil {
			return err
		}
		return tx.InsertItems(context.Background(), []domain.OrderItem{
			{OrderID: id, ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10), CreatedAt: createdAt},
		})
	})
	require.NoError(t, err)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := seededMemoryStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx ports.OrderTx) error {
		require.NoError(t, tx.AdjustStock(ctx, 1, -3, time.Now()))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	p, ok := store.Product(1)
	require.True(t, ok)
	assert.Equal(t, 5, p.Stock)
}

func TestMemoryStore_AdjustStockGuard(t *testing.T) {
	store := seededMemoryStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx ports.OrderTx) error {
		return tx.AdjustStock(ctx, 2, -2, time.Now())
	})
	assert.Error(t, err)

	p, _ := store.Product(2)
	assert.Equal(t, 1, p.Stock)
}

func TestMemoryStore_LockProductsSkipsMissing(t *testing.T) {
	store := seededMemoryStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx ports.OrderTx) error {
		products, err := tx.LockProducts(ctx, []int64{1, 99})
		require.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "X", products[1].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_InsertOrderForeignKey(t *testing.T) {
	store := seededMemoryStore(t)
	ctx := context.Background()
	ghost := int64(404)

	err := store.WithinTx(ctx, func(tx ports.OrderTx) error {
		return tx.InsertOrder(ctx, domain.Order{ID: "o", UserID: &ghost})
	})
	assert.Error(t, err)
}

func TestMemoryStore_FindOrders(t *testing.T) {
	store := seededMemoryStore(t)
	ctx := context.Background()
	customer := int64(7)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	insertOrder(t, store, "a", &customer, base, domain.OrderStatusPending)
	insertOrder(t, store, "b", nil, base.Add(time.Minute), domain.OrderStatusShipped)
	insertOrder(t, store, "c", &customer, base.Add(2*time.Minute), domain.OrderStatusPending)

	all, err := store.FindOrders(ctx, domain.OrderFilter{}.Normalize())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].Order.ID, all[1].Order.ID, all[2].Order.ID})
	assert.Nil(t, all[1].Customer)
	require.NotNil(t, all[0].Customer)
	assert.Equal(t, "Ana", all[0].Customer.Name)
	require.Len(t, all[0].Items, 1)
	assert.Equal(t, "X", all[0].Items[0].ProductName)
	assert.Equal(t, "x.png", all[0].Items[0].ImageURL)

	pending, err := store.FindOrders(ctx, domain.OrderFilter{Status: domain.OrderStatusPending, Limit: 1})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c", pending[0].Order.ID)

	mine, err := store.FindOrders(ctx, domain.OrderFilter{CustomerID: &customer, Offset: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].Order.ID)

	beyond, err := store.FindOrders(ctx, domain.OrderFilter{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryStore_DeleteCascadesItems(t *testing.T) {
	store := seededMemoryStore(t)
	ctx := context.Background()
	insertOrder(t, store, "gone", nil, time.Now(), domain.OrderStatusPending)

	deleted, err := store.DeleteOrder(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteOrder(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, deleted)

	snapshot, err := store.FindOrder(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	err = store.WithinTx(ctx, func(tx ports.OrderTx) error {
		items, err := tx.OrderItems(ctx, "gone")
		require.NoError(t, err)
		assert.Empty(t, items)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := seededMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WithinTx(ctx, func(tx ports.OrderTx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}

func TestDemoCatalog(t *testing.T) {
	catalog := DemoCatalog()
	require.NotEmpty(t, catalog)
	for _, p := range catalog {
		assert.Positive(t, p.ID)
		assert.Positive(t, p.Stock)
	}
}
