package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-api/internal/core/broker"
	"shop-api/internal/core/logger"
	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"go.uber.org/zap"
)

// BrokerEventPublisher serialises order events as JSON keyed by order id.
type BrokerEventPublisher struct {
	publisher broker.Publisher
}

// NewBrokerEventPublisher creates a new BrokerEventPublisher.
func NewBrokerEventPublisher(p broker.Publisher) *BrokerEventPublisher {
	return &BrokerEventPublisher{publisher: p}
}

// Publish sends event to the broker.
func (p *BrokerEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.publisher.Publish(ctx, event.OrderID, data)
}

// LogEventPublisher writes order events to the application log. It is used
// when no broker is configured.
type LogEventPublisher struct{}

// Publish logs event at info level.
func (LogEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	logger.Get().Info("Order event",
		zap.String("type", string(event.Type)),
		zap.String("order_id", event.OrderID),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.Bool("stock_restored", event.StockRestored),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

var (
	_ ports.EventPublisher = (*BrokerEventPublisher)(nil)
	_ ports.EventPublisher = LogEventPublisher{}
)
