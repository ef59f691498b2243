package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents one customer purchase as persisted in the orders relation.
type Order struct {
	// ID is the opaque identifier generated when the order is placed.
	ID string `json:"id"`
	// UserID references the owning customer. Nil for guest orders.
	UserID *int64 `json:"user_id"`
	// Name is the recipient name.
	Name string `json:"name"`
	// Phone is the recipient phone.
	Phone string `json:"phone"`
	// TotalAmount is the sum of price x quantity over the line items at creation time.
	TotalAmount decimal.Decimal `json:"total_amount"`
	// Status is the current lifecycle status.
	Status OrderStatus `json:"status"`
	// ShippingAddress is free text and always present.
	ShippingAddress string `json:"shipping_address"`
	// PaymentMethod is free text and optional.
	PaymentMethod string `json:"payment_method,omitempty"`
	// CreatedAt is set once on placement.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed on every status change.
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is one product quantity within an order. Price is the unit price
// captured when the order was placed.
type OrderItem struct {
	OrderID   string          `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subtotal returns price x quantity for the item.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is the slice of the catalog entity the order core reads and mutates.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Customer holds the display fields of an order owner.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// LineRequest is one cart entry submitted for placement.
type LineRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// PlaceOrderRequest carries everything needed to place an order.
type PlaceOrderRequest struct {
	// CustomerID is nil for guest checkouts.
	CustomerID      *int64
	Lines           []LineRequest
	ShippingAddress string
	PaymentMethod   string
	ContactName     string
	ContactPhone    string
	// IdempotencyKey deduplicates client retries when an idempotency store is configured.
	IdempotencyKey string
}

// Receipt is returned by a successful placement.
type Receipt struct {
	OrderID     string          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items"`
}

// OrderSnapshot is the raw read model returned by stores: an order with its
// owner display fields and its stored line items.
type OrderSnapshot struct {
	Order    Order
	Customer *Customer
	Items    []ItemDetail
}

// ItemDetail is a stored line item joined with catalog display fields.
type ItemDetail struct {
	ProductID   int64
	ProductName string
	ImageURL    string
	Quantity    int
	Price       decimal.Decimal
}

// OrderView is the display projection of an order.
type OrderView struct {
	ID              string          `json:"id"`
	UserID          *int64          `json:"user_id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	StatusLabel     string          `json:"status_label"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Customer        *Customer       `json:"customer,omitempty"`
	Items           []ViewItem      `json:"items"`
	TotalItems      int             `json:"total_items"`
}

// ViewItem is a merged line as shown to callers.
type ViewItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ImageURL    string          `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

const (
	// DefaultListLimit applies when a filter carries no limit.
	DefaultListLimit = 50
	// MaxListLimit caps any requested page size.
	MaxListLimit = 200
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status     OrderStatus
	CustomerID *int64
	Limit      int
	Offset     int
}

// Normalize applies the default and maximum page sizes.
func (f OrderFilter) Normalize() OrderFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
