package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-api/internal/core/cache"
	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"
)

const idempotencyKeyPrefix = "orders:idempotency:"

// DefaultIdempotencyTTL is how long a receipt stays replayable.
const DefaultIdempotencyTTL = 24 * time.Hour

type idempotencyRecord struct {
	Pending bool            `json:"pending"`
	Receipt *domain.Receipt `json:"receipt,omitempty"`
}

// CacheIdempotencyStore implements ports.IdempotencyStore on top of the cache port.
type CacheIdempotencyStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCacheIdempotencyStore creates a new CacheIdempotencyStore. A non positive
// ttl falls back to DefaultIdempotencyTTL.
func NewCacheIdempotencyStore(c cache.Cache, ttl time.Duration) *CacheIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &CacheIdempotencyStore{cache: c, ttl: ttl}
}

// Reserve claims key with a pending marker.
func (r *CacheIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	data, err := json.Marshal(idempotencyRecord{Pending: true})
	if err != nil {
		return false, fmt.Errorf("failed to marshal idempotency marker: %w", err)
	}

	ok, err := r.cache.SetNX(ctx, idempotencyKeyPrefix+key, data, r.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Load returns the stored receipt. Nil while the key is pending or after it expired.
func (r *CacheIdempotencyStore) Load(ctx context.Context, key string) (*domain.Receipt, error) {
	data, err := r.cache.Get(ctx, idempotencyKeyPrefix+key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load idempotency key: %w", err)
	}

	var record idempotencyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	if record.Pending {
		return nil, nil
	}
	return record.Receipt, nil
}

// Complete replaces the pending marker with the receipt.
func (r *CacheIdempotencyStore) Complete(ctx context.Context, key string, receipt *domain.Receipt) error {
	data, err := json.Marshal(idempotencyRecord{Receipt: receipt})
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	if err := r.cache.Set(ctx, idempotencyKeyPrefix+key, data, r.ttl); err != nil {
		return fmt.Errorf("failed to store receipt: %w", err)
	}
	return nil
}

// Release deletes the key so the client may retry.
func (r *CacheIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := r.cache.Delete(ctx, idempotencyKeyPrefix+key); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var _ ports.IdempotencyStore = (*CacheIdempotencyStore)(nil)
