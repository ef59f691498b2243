package ports

import (
	"context"
	"time"

	"shop-api/internal/features/orders/domain"
)

// OrderService defines the primary port used by the HTTP layer.
type OrderService interface {
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Receipt, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) (*domain.OrderView, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderView, error)
	GetOrdersForCustomer(ctx context.Context, customerID int64) ([]domain.OrderView, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// OrderStore is the transactional persistence port (secondary port).
type OrderStore interface {
	// WithinTx runs fn in one atomic transaction. Any error returned by fn
	// rolls back every statement fn issued.
	WithinTx(ctx context.Context, fn func(tx OrderTx) error) error

	// FindOrders returns snapshots matching filter, newest first.
	FindOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSnapshot, error)
	// FindOrder returns one snapshot or nil when the order does not exist.
	FindOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
	// DeleteOrder removes the order row. It reports false when nothing was deleted.
	DeleteOrder(ctx context.Context, orderID string) (bool, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// OrderTx exposes the row operations available inside a transaction.
type OrderTx interface {
	// LockProducts reads and locks the given products against concurrent
	// stock changes until the transaction ends. Missing ids are absent from
	// the result.
	LockProducts(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error)
	// AdjustStock adds delta to the product stock. A change that would leave
	// the stock negative fails.
	AdjustStock(ctx context.Context, productID int64, delta int, at time.Time) error

	InsertOrder(ctx context.Context, order domain.Order) error
	InsertItems(ctx context.Context, items []domain.OrderItem) error

	// LockOrder reads and locks one order. Nil when it does not exist.
	LockOrder(ctx context.Context, orderID string) (*domain.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error
}

// EventPublisher delivers committed order events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// IdempotencyStore remembers placement receipts per client supplied key.
type IdempotencyStore interface {
	// Reserve claims key. It returns false when the key is already claimed.
	Reserve(ctx context.Context, key string) (bool, error)
	// Load returns the stored receipt, or nil while the first request is in flight.
	Load(ctx context.Context, key string) (*domain.Receipt, error)
	// Complete stores the receipt for key.
	Complete(ctx context.Context, key string, receipt *domain.Receipt) error
	// Release frees key after a failed placement.
	Release(ctx context.Context, key string) error
}
