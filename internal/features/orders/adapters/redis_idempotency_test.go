package adapters

import (
	"context"
	"testing"
	"time"

	"shop-api/internal/core/cache"
	"shop-api/internal/features/orders/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdempotency(t *testing.T) (*CacheIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	redisCache, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisCache.Close() })

	return NewCacheIdempotencyStore(redisCache, time.Minute), mr
}

func TestCacheIdempotencyStore_Lifecycle(t *testing.T) {
	store, _ := setupIdempotency(t)
	ctx := context.Background()

	reserved, err := store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, reserved)

	pending, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	receipt := &domain.Receipt{
		OrderID:     "order-1",
		TotalAmount: decimal.RequireFromString("25.5"),
		Items:       []domain.OrderItem{{OrderID: "order-1", ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("10")}},
	}
	require.NoError(t, store.Complete(ctx, "k1", receipt))

	loaded, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "order-1", loaded.OrderID)
	assert.True(t, receipt.TotalAmount.Equal(loaded.TotalAmount))
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
}

func TestCacheIdempotencyStore_Release(t *testing.T) {
	store, _ := setupIdempotency(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k2"))

	reserved, err := store.Reserve(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestCacheIdempotencyStore_Expiry(t *testing.T) {
	store, mr := setupIdempotency(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k3")
	require.NoError(t, err)
	assert.True(t, mr.Exists(idempotencyKeyPrefix+"k3"))

	mr.FastForward(2 * time.Minute)

	loaded, err := store.Load(ctx, "k3")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	reserved, err := store.Reserve(ctx, "k3")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestCacheIdempotencyStore_UnreachableCache(t *testing.T) {
	store, mr := setupIdempotency(t)
	mr.Close()

	_, err := store.Reserve(context.Background(), "k4")
	assert.Error(t, err)
}
