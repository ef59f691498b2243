package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or incomplete caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to an order or product that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock marks a line whose quantity exceeds the product stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict marks a request that collides with one still in flight.
	ErrConflict = errors.New("conflict")
	// ErrStorage marks any failure of the transactional store.
	ErrStorage = errors.New("storage failure")
)

// ErrorKind classifies errors for callers that render responses.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindConflict          ErrorKind = "conflict"
	KindStorage           ErrorKind = "storage"
)

// ValidationError reports which input was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Entities referenced by NotFoundError.
const (
	EntityOrder   = "order"
	EntityProduct = "product"
)

// NotFoundError reports a missing order or product.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError identifies the product that cannot cover a line.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s only has %d left in stock (requested %d)",
		e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ConflictError reports a duplicate request that is still being processed.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StorageError hides store internals from callers. Op names the failed
// operation; the cause stays reachable through Unwrap for logging.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err unless it already carries a storage classification.
func NewStorageError(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string { return ErrStorage.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// KindOf classifies err. Anything unrecognised is treated as a storage failure.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindStorage
	}
}

// IsBusiness reports whether err is a business-rule rejection rather than an
// infrastructure failure.
func IsBusiness(err error) bool {
	return err != nil && KindOf(err) != KindStorage
}
