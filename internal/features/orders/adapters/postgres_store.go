package adapters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"shop-api/internal/core/database"
	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRow struct {
	ID        int64           `gorm:"column:id;primaryKey"`
	Name      string          `gorm:"column:name"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int             `gorm:"column:stock"`
	ImageURL  string          `gorm:"column:image_url"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (productRow) TableName() string { return "products" }

type userRow struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userRow) TableName() string { return "users" }

type orderRow struct {
	ID              string          `gorm:"column:id;primaryKey"`
	UserID          *int64          `gorm:"column:user_id"`
	Name            string          `gorm:"column:name"`
	Phone           string          `gorm:"column:phone"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2)"`
	Status          string          `gorm:"column:status"`
	ShippingAddress string          `gorm:"column:shipping_address"`
	PaymentMethod   string          `gorm:"column:payment_method"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (orderRow) TableName() string { return "orders" }

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		Name:            r.Name,
		Phone:           r.Phone,
		TotalAmount:     r.TotalAmount,
		Status:          domain.OrderStatus(r.Status),
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   r.PaymentMethod,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type orderItemRow struct {
	OrderID   string          `gorm:"column:order_id;primaryKey"`
	ProductID int64           `gorm:"column:product_id;primaryKey"`
	Quantity  int             `gorm:"column:quantity"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

func (orderItemRow) TableName() string { return "order_items" }

// orderListRow is an order joined with its optional owner.
type orderListRow struct {
	orderRow
	CustomerName  *string `gorm:"column:customer_name"`
	CustomerEmail *string `gorm:"column:customer_email"`
	CustomerPhone *string `gorm:"column:customer_phone"`
}

type itemDetailRow struct {
	OrderID     string          `gorm:"column:order_id"`
	ProductID   int64           `gorm:"column:product_id"`
	ProductName string          `gorm:"column:product_name"`
	ImageURL    string          `gorm:"column:image_url"`
	Quantity    int             `gorm:"column:quantity"`
	Price       decimal.Decimal `gorm:"column:price"`
}

// PostgresStore implements ports.OrderStore on Postgres through gorm.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinTx runs fn inside a database transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx ports.OrderTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

// FindOrders returns snapshots matching filter, newest first.
func (s *PostgresStore) FindOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSnapshot, error) {
	query := s.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.*, u.name AS customer_name, u.email AS customer_email, u.phone AS customer_phone").
		Joins("LEFT JOIN users u ON u.id = o.user_id")

	if filter.Status != "" {
		query = query.Where("o.status = ?", string(filter.Status))
	}
	if filter.CustomerID != nil {
		query = query.Where("o.user_id = ?", *filter.CustomerID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []orderListRow
	if err := query.Order("o.created_at DESC, o.id DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	return s.attachItems(ctx, rows)
}

// FindOrder returns one snapshot or nil.
func (s *PostgresStore) FindOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, nil
	}

	var rows []orderListRow
	err := s.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.*, u.name AS customer_name, u.email AS customer_email, u.phone AS customer_phone").
		Joins("LEFT JOIN users u ON u.id = o.user_id").
		Where("o.id = ?", orderID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	snapshots, err := s.attachItems(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &snapshots[0], nil
}

func (s *PostgresStore) attachItems(ctx context.Context, rows []orderListRow) ([]domain.OrderSnapshot, error) {
	snapshots := make([]domain.OrderSnapshot, 0, len(rows))
	if len(rows) == 0 {
		return snapshots, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var items []itemDetailRow
	err := s.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.order_id, oi.product_id, p.name AS product_name, p.image_url, oi.quantity, oi.price").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("oi.order_id IN ?", ids).
		Order("oi.created_at, oi.product_id").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	byOrder := make(map[string][]domain.ItemDetail, len(rows))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], domain.ItemDetail{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	for _, row := range rows {
		snapshot := domain.OrderSnapshot{Order: row.toDomain(), Items: byOrder[row.ID]}
		if row.UserID != nil && row.CustomerName != nil {
			snapshot.Customer = &domain.Customer{
				ID:    *row.UserID,
				Name:  *row.CustomerName,
				Email: deref(row.CustomerEmail),
				Phone: deref(row.CustomerPhone),
			}
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// DeleteOrder removes the order row. Items go with it through ON DELETE CASCADE.
func (s *PostgresStore) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return false, nil
	}

	result := s.db.WithContext(ctx).Where("id = ?", orderID).Delete(&orderRow{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete order %s: %w", orderID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// gormTx runs row operations on an open gorm transaction.
type gormTx struct {
	db *gorm.DB
}

// LockProducts selects the products FOR UPDATE in ascending id order so
// concurrent placements acquire row locks in the same sequence.
func (t *gormTx) LockProducts(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	ids := uniqueSorted(productIDs)
	found := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var rows []productRow
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	for _, row := range rows {
		found[row.ID] = domain.Product{ID: row.ID, Name: row.Name, Price: row.Price, Stock: row.Stock}
	}
	return found, nil
}

// AdjustStock applies delta with a guard that keeps stock non negative.
func (t *gormTx) AdjustStock(ctx context.Context, productID int64, delta int, at time.Time) error {
	result := t.db.WithContext(ctx).
		Model(&productRow{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to adjust stock of product %d: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("stock of product %d cannot change by %d", productID, delta)
	}
	return nil
}

func (t *gormTx) InsertOrder(ctx context.Context, order domain.Order) error {
	row := orderRow{
		ID:              order.ID,
		UserID:          order.UserID,
		Name:            order.Name,
		Phone:           order.Phone,
		TotalAmount:     order.TotalAmount,
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *gormTx) InsertItems(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]orderItemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, orderItemRow{
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			CreatedAt: item.CreatedAt,
		})
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	return nil
}

// LockOrder selects the order FOR UPDATE.
func (t *gormTx) LockOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, nil
	}

	var row orderRow
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order %s: %w", orderID, err)
	}

	order := row.toDomain()
	return &order, nil
}

func (t *gormTx) OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	var rows []orderItemRow
	err := t.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("product_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load items of order %s: %w", orderID, err)
	}

	items := make([]domain.OrderItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.OrderItem{
			OrderID:   row.OrderID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			Price:     row.Price,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (t *gormTx) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error {
	result := t.db.WithContext(ctx).
		Model(&orderRow{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order %s vanished during status update", orderID)
	}
	return nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ ports.OrderStore = (*PostgresStore)(nil)
	_ ports.OrderTx    = (*gormTx)(nil)
)
