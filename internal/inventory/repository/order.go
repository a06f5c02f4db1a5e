package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

const orderColumns = `o.id, o.product_id, o.supplier_id, o.alert_id, o.quantity_ordered, o.state,
	o.used_for_entry, o.created_at, o.updated_at`

const orderReadColumns = orderColumns + `, p.name AS product_name, p.sku, s.name AS supplier_name`

const orderFrom = `FROM orders o
	JOIN products p ON p.id = o.product_id
	JOIN suppliers s ON s.id = o.supplier_id`

// OrderFilter narrows an order listing
type OrderFilter struct {
	State     string
	ProductID string
}

// OrderRepository handles order and order item persistence
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create creates a new order
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	query := `
		INSERT INTO orders (id, product_id, supplier_id, alert_id, quantity_ordered, state, used_for_entry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		o.ID, o.ProductID, o.SupplierID, o.AlertID, o.QuantityOrdered, o.State, o.UsedForEntry,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	return database.Translate(err, "order")
}

// GetByID gets an order with product and supplier names
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.Executor(ctx).GetContext(ctx, &o, `SELECT `+orderReadColumns+` `+orderFrom+` WHERE o.id = $1`, id); err != nil {
		return nil, database.Translate(err, "order")
	}
	return &o, nil
}

// LockForUpdate reads the order and locks its row. Must be called inside WithTx.
func (r *OrderRepository) LockForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.Executor(ctx).GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id); err != nil {
		return nil, database.Translate(err, "order")
	}
	return &o, nil
}

// List lists orders, newest first
func (r *OrderRepository) List(ctx context.Context, f OrderFilter, page Page) ([]*domain.Order, int64, error) {
	var where filter
	if f.State != "" {
		where.add("o.state = ?", f.State)
	}
	if f.ProductID != "" {
		where.add("o.product_id = ?", f.ProductID)
	}
	orders := []*domain.Order{}
	total, err := listPage(ctx, r.db.Executor(ctx), &orders, orderFrom, orderReadColumns, "o.created_at DESC", &where, page, "order")
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update writes the state, quantity and used_for_entry flag of an order
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	query := `
		UPDATE orders SET state = $2, quantity_ordered = $3, used_for_entry = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, o.ID, o.State, o.QuantityOrdered, o.UsedForEntry)
	return expectAffected(result, err, "order")
}

const orderItemColumns = `i.id, i.order_id, i.product_id, i.alert_id, i.quantity, i.created_at, p.name AS product_name`

// CreateItem adds an item to an order
func (r *OrderRepository) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO order_items (id, order_id, product_id, alert_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.AlertID, item.Quantity,
	).Scan(&item.CreatedAt)
	return database.Translate(err, "order item")
}

// GetItem gets an order item by ID
func (r *OrderRepository) GetItem(ctx context.Context, id string) (*domain.OrderItem, error) {
	var item domain.OrderItem
	query := `SELECT ` + orderItemColumns + ` FROM order_items i JOIN products p ON p.id = i.product_id WHERE i.id = $1`
	if err := r.db.Executor(ctx).GetContext(ctx, &item, query, id); err != nil {
		return nil, database.Translate(err, "order item")
	}
	return &item, nil
}

// ListItems lists the items of an order
func (r *OrderRepository) ListItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	items := []*domain.OrderItem{}
	query := `SELECT ` + orderItemColumns + ` FROM order_items i JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1 ORDER BY i.created_at`
	if err := r.db.Executor(ctx).SelectContext(ctx, &items, query, orderID); err != nil {
		return nil, database.Translate(err, "order item")
	}
	return items, nil
}

// UpdateItem writes the product, alert and quantity of an item
func (r *OrderRepository) UpdateItem(ctx context.Context, item *domain.OrderItem) error {
	query := `UPDATE order_items SET product_id = $2, alert_id = $3, quantity = $4 WHERE id = $1`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, item.ID, item.ProductID, item.AlertID, item.Quantity)
	return expectAffected(result, err, "order item")
}

// DeleteItem removes an item
func (r *OrderRepository) DeleteItem(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	return expectAffected(result, err, "order item")
}
