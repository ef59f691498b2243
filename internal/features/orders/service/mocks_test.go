package service

import (
	"context"
	"sync"

	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) WithinTx(ctx context.Context, fn func(tx ports.OrderTx) error) error {
	return m.Called(ctx, fn).Error(0)
}

func (m *MockOrderStore) FindOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSnapshot, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderSnapshot), args.Error(1)
}

func (m *MockOrderStore) FindOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderSnapshot), args.Error(1)
}

func (m *MockOrderStore) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	return m.Called(ctx, event).Error(0)
}

// memoryIdempotency keeps receipts in a map for service tests. Like the
// Redis store, writes fail once ctx is done.
type memoryIdempotency struct {
	mu       sync.Mutex
	receipts map[string]*domain.Receipt
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{receipts: make(map[string]*domain.Receipt)}
}

func (m *memoryIdempotency) Reserve(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[key]; ok {
		return false, nil
	}
	m.receipts[key] = nil
	return true, nil
}

func (m *memoryIdempotency) Load(ctx context.Context, key string) (*domain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receipts[key], nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, key string, receipt *domain.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[key] = receipt
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.receipts, key)
	return nil
}

var (
	_ ports.OrderStore       = (*MockOrderStore)(nil)
	_ ports.EventPublisher   = (*MockEventPublisher)(nil)
	_ ports.IdempotencyStore = (*memoryIdempotency)(nil)
)
