package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MergeLines collapses repeated products into one line with the summed
// quantity. The first occurrence fixes the line's position and unit price.
func MergeLines(lines []LineRequest) []LineRequest {
	merged := make([]LineRequest, 0, len(lines))
	index := make(map[int64]int, len(lines))

	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// MaxLineQuantity bounds a line's quantity, before and after merging, to the
// range of the order_items.quantity column.
const MaxLineQuantity = math.MaxInt32

// ValidatePlacement checks a placement request before anything touches the store.
func ValidatePlacement(req PlaceOrderRequest) error {
	if len(req.Lines) == 0 {
		return NewValidationError("items", "order must contain at least one item")
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return NewValidationError("shipping_address", "shipping address is required")
	}
	if req.CustomerID != nil && *req.CustomerID <= 0 {
		return NewValidationError("user_id", "user id must be positive")
	}

	for i, line := range req.Lines {
		if line.ProductID <= 0 {
			return NewValidationError("items", "item %d: product id must be positive", i)
		}
		if line.Quantity <= 0 {
			return NewValidationError("items", "item %d: quantity must be positive", i)
		}
		if line.Quantity > MaxLineQuantity {
			return NewValidationError("items", "item %d: quantity must not exceed %d", i, MaxLineQuantity)
		}
		if line.UnitPrice.IsNegative() {
			return NewValidationError("items", "item %d: price must not be negative", i)
		}
	}

	merged := make(map[int64]int, len(req.Lines))
	for _, line := range req.Lines {
		merged[line.ProductID] += line.Quantity
		if merged[line.ProductID] > MaxLineQuantity {
			return NewValidationError("items", "product %d: total quantity must not exceed %d", line.ProductID, MaxLineQuantity)
		}
	}
	return nil
}

// TotalAmount sums unit price x quantity over lines.
func TotalAmount(lines []LineRequest) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// NewView projects a stored snapshot for display. Items repeated for the same
// product are merged; stored rows are left untouched.
func NewView(s OrderSnapshot) OrderView {
	view := OrderView{
		ID:              s.Order.ID,
		UserID:          s.Order.UserID,
		Name:            s.Order.Name,
		Phone:           s.Order.Phone,
		TotalAmount:     s.Order.TotalAmount,
		Status:          s.Order.Status,
		StatusLabel:     s.Order.Status.Label(),
		ShippingAddress: s.Order.ShippingAddress,
		PaymentMethod:   s.Order.PaymentMethod,
		CreatedAt:       s.Order.CreatedAt,
		UpdatedAt:       s.Order.UpdatedAt,
		Customer:        s.Customer,
		Items:           make([]ViewItem, 0, len(s.Items)),
	}

	index := make(map[int64]int, len(s.Items))
	for _, item := range s.Items {
		if i, ok := index[item.ProductID]; ok {
			merged := &view.Items[i]
			merged.Quantity += item.Quantity
			merged.TotalPrice = merged.Price.Mul(decimal.NewFromInt(int64(merged.Quantity)))
			continue
		}
		index[item.ProductID] = len(view.Items)
		view.Items = append(view.Items, ViewItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			Price:       item.Price,
			TotalPrice:  item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	for _, item := range view.Items {
		view.TotalItems += item.Quantity
	}
	return view
}
