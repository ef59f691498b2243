package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"shop-api/internal/core/logger"
	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService places orders and drives them through their lifecycle.
type OrderService struct {
	// store is the transactional persistence port.
	store ports.OrderStore
	// publisher receives events after commit. Optional.
	publisher ports.EventPublisher
	// idempotency deduplicates placement retries. Optional.
	idempotency ports.IdempotencyStore
	// catalogPricing re-derives unit prices from the catalog instead of trusting the client.
	catalogPricing bool
	// publishTimeout bounds event publishing after commit.
	publishTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// DefaultPublishTimeout bounds how long a committed operation waits on the
// event publisher.
const DefaultPublishTimeout = 3 * time.Second

// Option configures an OrderService.
type Option func(*OrderService)

// WithPublisher sets the event publisher.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *OrderService) { s.publisher = p }
}

// WithIdempotency enables Idempotency-Key handling on placement.
func WithIdempotency(store ports.IdempotencyStore) Option {
	return func(s *OrderService) { s.idempotency = store }
}

// WithCatalogPricing makes placement use catalog prices as the unit price snapshot.
func WithCatalogPricing(enabled bool) Option {
	return func(s *OrderService) { s.catalogPricing = enabled }
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *OrderService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

// WithIDGenerator overrides how order identifiers are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *OrderService) { s.newID = newID }
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(store ports.OrderStore, opts ...Option) *OrderService {
	s := &OrderService{
		store:          store,
		publishTimeout: DefaultPublishTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates the cart, merges repeated products and commits the
// order, its items and the stock decrements as one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Receipt, error) {
	if err := domain.ValidatePlacement(req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey == "" || s.idempotency == nil {
		return s.placeOrder(ctx, req)
	}
	return s.placeOnce(ctx, req)
}

// placeOnce runs placeOrder at most once per idempotency key.
func (s *OrderService) placeOnce(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Receipt, error) {
	key := req.IdempotencyKey

	reserved, err := s.idempotency.Reserve(ctx, key)
	if err != nil {
		return nil, s.fail("reserve idempotency key", err, zap.String("idempotency_key", key))
	}

	if !reserved {
		receipt, err := s.idempotency.Load(ctx, key)
		if err != nil {
			return nil, s.fail("load idempotent receipt", err, zap.String("idempotency_key", key))
		}
		if receipt == nil {
			return nil, &domain.ConflictError{Message: "a request with this idempotency key is still being processed"}
		}
		logger.Get().Info("Replayed order placement", zap.String("order_id", receipt.OrderID), zap.String("idempotency_key", key))
		return receipt, nil
	}

	receipt, err := s.placeOrder(ctx, req)

	// The key outlives the request: a dropped client must not leave it pending.
	detached := context.WithoutCancel(ctx)
	if err != nil {
		if relErr := s.idempotency.Release(detached, key); relErr != nil {
			logger.Get().Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(relErr))
		}
		return nil, err
	}

	// The order is committed at this point; losing the receipt only weakens replay.
	if err := s.idempotency.Complete(detached, key, receipt); err != nil {
		logger.Get().Warn("Failed to store idempotent receipt",
			zap.String("order_id", receipt.OrderID),
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
	return receipt, nil
}

func (s *OrderService) placeOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Receipt, error) {
	lines := domain.MergeLines(req.Lines)
	now := s.now().UTC()

	order := domain.Order{
		ID:              s.newID(),
		UserID:          req.CustomerID,
		Name:            strings.TrimSpace(req.ContactName),
		Phone:           strings.TrimSpace(req.ContactPhone),
		Status:          domain.OrderStatusPending,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var items []domain.OrderItem
	err := s.store.WithinTx(ctx, func(tx ports.OrderTx) error {
		products, err := tx.LockProducts(ctx, productIDs(lines))
		if err != nil {
			return err
		}

		for i, line := range lines {
			product, ok := products[line.ProductID]
			if !ok {
				return &domain.NotFoundError{Entity: domain.EntityProduct, ID: strconv.FormatInt(line.ProductID, 10)}
			}
			if product.Stock < line.Quantity {
				return &domain.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Available:   product.Stock,
					Requested:   line.Quantity,
				}
			}
			if s.catalogPricing {
				lines[i].UnitPrice = product.Price
			}
		}

		order.TotalAmount = domain.TotalAmount(lines)
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		items = make([]domain.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, domain.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.UnitPrice,
				CreatedAt: now,
			})
		}
		if err := tx.InsertItems(ctx, items); err != nil {
			return err
		}

		for _, line := range lines {
			if err := tx.AdjustStock(ctx, line.ProductID, -line.Quantity, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("place order", err, zap.Int("lines", len(lines)))
	}

	logger.Get().Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(items)),
	)

	s.publish(ctx, domain.OrderEvent{
		Type:        domain.EventOrderPlaced,
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       items,
		OccurredAt:  now,
	})

	return &domain.Receipt{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	}, nil
}

// UpdateOrderStatus moves an order to a new status. Cancelling an order that
// is not yet cancelled restores the stock of its items in the same transaction.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, status string) (*domain.OrderView, error) {
	target, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.NewValidationError("id", "order id is required")
	}

	now := s.now().UTC()
	var previous domain.OrderStatus
	var restored bool

	err = s.store.WithinTx(ctx, func(tx ports.OrderTx) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Entity: domain.EntityOrder, ID: orderID}
		}
		previous = order.Status
		restored = false

		if target == domain.OrderStatusCancelled && order.Status != domain.OrderStatusCancelled {
			items, err := tx.OrderItems(ctx, orderID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := tx.AdjustStock(ctx, item.ProductID, item.Quantity, now); err != nil {
					return err
				}
			}
			restored = true
		}

		return tx.UpdateStatus(ctx, orderID, target, now)
	})
	if err != nil {
		return nil, s.fail("update order status", err, zap.String("order_id", orderID), zap.String("status", string(target)))
	}

	logger.Get().Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.Bool("stock_restored", restored),
	)

	s.publish(ctx, domain.OrderEvent{
		Type:          domain.EventOrderStatusChanged,
		OrderID:       orderID,
		From:          previous,
		To:            target,
		StockRestored: restored,
		OccurredAt:    now,
	})

	snapshot, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail("load order", err, zap.String("order_id", orderID))
	}
	if snapshot == nil {
		return nil, &domain.NotFoundError{Entity: domain.EntityOrder, ID: orderID}
	}

	view := domain.NewView(*snapshot)
	return &view, nil
}

// ListOrders returns the orders matching filter, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderView, error) {
	if filter.Status != "" {
		status, err := domain.ParseStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if filter.CustomerID != nil && *filter.CustomerID <= 0 {
		return nil, domain.NewValidationError("user_id", "user id must be positive")
	}

	snapshots, err := s.store.FindOrders(ctx, filter.Normalize())
	if err != nil {
		return nil, s.fail("list orders", err)
	}

	views := make([]domain.OrderView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, domain.NewView(snapshot))
	}
	return views, nil
}

// GetOrdersForCustomer returns every order owned by one customer, newest
// first, reading the store one page at a time.
func (s *OrderService) GetOrdersForCustomer(ctx context.Context, customerID int64) ([]domain.OrderView, error) {
	if customerID <= 0 {
		return nil, domain.NewValidationError("user_id", "user id must be positive")
	}

	filter := domain.OrderFilter{CustomerID: &customerID, Limit: domain.MaxListLimit}
	views := make([]domain.OrderView, 0)
	for {
		page, err := s.ListOrders(ctx, filter)
		if err != nil {
			return nil, err
		}
		views = append(views, page...)
		if len(page) < filter.Limit {
			return views, nil
		}
		filter.Offset += len(page)
	}
}

// DeleteOrder removes an order row. Stock is not restored and line items are
// left to the store's referential rules.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.NewValidationError("id", "order id is required")
	}

	deleted, err := s.store.DeleteOrder(ctx, orderID)
	if err != nil {
		return s.fail("delete order", err, zap.String("order_id", orderID))
	}
	if !deleted {
		return &domain.NotFoundError{Entity: domain.EntityOrder, ID: orderID}
	}

	logger.Get().Info("Order deleted", zap.String("order_id", orderID))
	s.publish(ctx, domain.OrderEvent{
		Type:       domain.EventOrderDeleted,
		OrderID:    orderID,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// fail logs err at a level matching its kind and converts infrastructure
// failures into opaque storage errors.
func (s *OrderService) fail(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if domain.IsBusiness(err) {
		logger.Get().Warn("Order request rejected", fields...)
		return err
	}
	logger.Get().Error("Order storage failure", fields...)
	return domain.NewStorageError(op, err)
}

// publish runs after commit. It ignores request cancellation and gives up
// after publishTimeout so a slow broker cannot hold the response.
func (s *OrderService) publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Get().Warn("Failed to publish order event",
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func productIDs(lines []domain.LineRequest) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

var _ ports.OrderService = (*OrderService)(nil)
