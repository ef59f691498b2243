package domain

import (
	"strings"
)

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	// OrderStatusPending is the status of every freshly placed order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled and its stock restored.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderStatuses lists the closed status set in lifecycle order.
var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var statusLabels = map[OrderStatus]string{
	OrderStatusPending:    "Awaiting processing",
	OrderStatusProcessing: "Processing",
	OrderStatusShipped:    "Out for delivery",
	OrderStatusDelivered:  "Completed",
	OrderStatusCancelled:  "Cancelled",
}

// statusAliases maps values used by the older four-state deployment onto the
// canonical set.
var statusAliases = map[string]OrderStatus{
	"completed": OrderStatusDelivered,
}

// Statuses returns the legal status values.
func Statuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// Valid reports whether s belongs to the canonical status set.
func (s OrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable label. Unknown values are returned as-is.
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStatus converts caller input into a canonical status.
func ParseStatus(raw string) (OrderStatus, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if s := OrderStatus(value); s.Valid() {
		return s, nil
	}
	if s, ok := statusAliases[value]; ok {
		return s, nil
	}

	legal := make([]string, len(orderStatuses))
	for i, s := range orderStatuses {
		legal[i] = string(s)
	}
	return "", NewValidationError("status",
		"invalid order status %q, valid values: %s", raw, strings.Join(legal, ", "))
}
