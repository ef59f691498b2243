package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names an order event published after commit.
type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderDeleted       EventType = "order.deleted"
)

// OrderEvent describes a committed change to an order.
type OrderEvent struct {
	Type        EventType       `json:"type"`
	OrderID     string          `json:"order_id"`
	UserID      *int64          `json:"user_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount,omitempty"`
	Items       []OrderItem     `json:"items,omitempty"`
	// From and To are set for status changes.
	From OrderStatus `json:"from,omitempty"`
	To   OrderStatus `json:"to,omitempty"`
	// StockRestored is true when a cancellation returned stock to the catalog.
	StockRestored bool      `json:"stock_restored,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
