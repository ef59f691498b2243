package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"github.com/shopspring/decimal"
)

// MemoryStore implements ports.OrderStore in process memory. Transactions are
// serialised by a mutex and work on a copy of the state that replaces the
// live state only when the transaction function succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	products  map[int64]memoryProduct
	customers map[int64]domain.Customer
	orders    map[string]domain.Order
	// items keeps insertion order per order.
	items map[string][]domain.OrderItem
}

type memoryProduct struct {
	domain.Product
	ImageURL  string
	UpdatedAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			products:  make(map[int64]memoryProduct),
			customers: make(map[int64]domain.Customer),
			orders:    make(map[string]domain.Order),
			items:     make(map[string][]domain.OrderItem),
		},
	}
}

// DemoCatalog is the catalog loaded into a memory store for local runs.
func DemoCatalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Mechanical Keyboard", Price: decimal.RequireFromString("89.90"), Stock: 25},
		{ID: 2, Name: "Wireless Mouse", Price: decimal.RequireFromString("24.50"), Stock: 40},
		{ID: 3, Name: "USB-C Hub", Price: decimal.RequireFromString("35.00"), Stock: 10},
	}
}

// SeedProduct inserts or replaces a catalog product.
func (s *MemoryStore) SeedProduct(p domain.Product, imageURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = memoryProduct{Product: p, ImageURL: imageURL}
}

// SeedCustomer inserts or replaces a customer.
func (s *MemoryStore) SeedCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.customers[c.ID] = c
}

// Product returns the current catalog entry for id.
func (s *MemoryStore) Product(id int64) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	return p.Product, ok
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// only when fn returns nil.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx ports.OrderTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memoryTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// FindOrders returns snapshots matching filter, newest first.
func (s *MemoryStore) FindOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]domain.Order, 0, len(s.state.orders))
	for _, order := range s.state.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && (order.UserID == nil || *order.UserID != *filter.CustomerID) {
			continue
		}
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []domain.OrderSnapshot{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	snapshots := make([]domain.OrderSnapshot, 0, len(matched))
	for _, order := range matched {
		snapshots = append(snapshots, s.state.snapshot(order))
	}
	return snapshots, nil
}

// FindOrder returns one snapshot or nil.
func (s *MemoryStore) FindOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.state.orders[orderID]
	if !ok {
		return nil, nil
	}
	snapshot := s.state.snapshot(order)
	return &snapshot, nil
}

// DeleteOrder removes the order and, like an ON DELETE CASCADE constraint, its items.
func (s *MemoryStore) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.orders[orderID]; !ok {
		return false, nil
	}
	delete(s.state.orders, orderID)
	delete(s.state.items, orderID)
	return true, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (st *memoryState) clone() *memoryState {
	out := &memoryState{
		products:  make(map[int64]memoryProduct, len(st.products)),
		customers: st.customers,
		orders:    make(map[string]domain.Order, len(st.orders)),
		items:     make(map[string][]domain.OrderItem, len(st.items)),
	}
	for id, p := range st.products {
		out.products[id] = p
	}
	for id, o := range st.orders {
		out.orders[id] = o
	}
	for id, items := range st.items {
		out.items[id] = append([]domain.OrderItem(nil), items...)
	}
	return out
}

func (st *memoryState) snapshot(order domain.Order) domain.OrderSnapshot {
	snapshot := domain.OrderSnapshot{Order: order}
	if order.UserID != nil {
		if c, ok := st.customers[*order.UserID]; ok {
			customer := c
			snapshot.Customer = &customer
		}
	}
	for _, item := range st.items[order.ID] {
		p := st.products[item.ProductID]
		snapshot.Items = append(snapshot.Items, domain.ItemDetail{
			ProductID:   item.ProductID,
			ProductName: p.Name,
			ImageURL:    p.ImageURL,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return snapshot
}

// memoryTx mutates a private state copy owned by one WithinTx call.
type memoryTx struct {
	state *memoryState
}

func (tx *memoryTx) LockProducts(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	found := make(map[int64]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := tx.state.products[id]; ok {
			found[id] = p.Product
		}
	}
	return found, nil
}

func (tx *memoryTx) AdjustStock(ctx context.Context, productID int64, delta int, at time.Time) error {
	p, ok := tx.state.products[productID]
	if !ok {
		return fmt.Errorf("adjust stock: product %d missing", productID)
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("adjust stock: product %d would go negative", productID)
	}
	p.Stock += delta
	p.UpdatedAt = at
	tx.state.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order domain.Order) error {
	if _, exists := tx.state.orders[order.ID]; exists {
		return fmt.Errorf("insert order: duplicate id %s", order.ID)
	}
	if order.UserID != nil {
		if _, ok := tx.state.customers[*order.UserID]; !ok {
			return fmt.Errorf("insert order: user %d violates foreign key", *order.UserID)
		}
	}
	tx.state.orders[order.ID] = order
	return nil
}

func (tx *memoryTx) InsertItems(ctx context.Context, items []domain.OrderItem) error {
	for _, item := range items {
		for _, existing := range tx.state.items[item.OrderID] {
			if existing.ProductID == item.ProductID {
				return fmt.Errorf("insert items: duplicate product %d for order %s", item.ProductID, item.OrderID)
			}
		}
		tx.state.items[item.OrderID] = append(tx.state.items[item.OrderID], item)
	}
	return nil
}

func (tx *memoryTx) LockOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, ok := tx.state.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (tx *memoryTx) OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), tx.state.items[orderID]...), nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error {
	order, ok := tx.state.orders[orderID]
	if !ok {
		return fmt.Errorf("update status: order %s missing", orderID)
	}
	order.Status = status
	order.UpdatedAt = at
	tx.state.orders[orderID] = order
	return nil
}

var (
	_ ports.OrderStore = (*MemoryStore)(nil)
	_ ports.OrderTx    = (*memoryTx)(nil)
)
