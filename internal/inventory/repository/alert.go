package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

const alertColumns = `a.id, a.product_id, a.state, a.message, a.suggested_stock, a.used_for_order,
	a.order_id, a.silenced_at, a.created_at, a.updated_at`

const alertReadColumns = alertColumns + `, p.name AS product_name, p.sku`

const alertFrom = `FROM alerts a JOIN products p ON p.id = a.product_id`

// AlertFilter narrows an alert listing
type AlertFilter struct {
	State     string
	ProductID string
}

// AlertRepository handles stock alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert. A second open alert for the same product is
// rejected by the alerts_one_open_per_product index as a Duplicate.
func (r *AlertRepository) Create(ctx context.Context, a *domain.Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO alerts (id, product_id, state, message, suggested_stock, used_for_order, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		a.ID, a.ProductID, a.State, a.Message, a.SuggestedStock, a.UsedForOrder, a.OrderID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return database.Translate(err, "alert")
}

// GetByID gets an alert with its product name
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	var a domain.Alert
	if err := r.db.Executor(ctx).GetContext(ctx, &a, `SELECT `+alertReadColumns+` `+alertFrom+` WHERE a.id = $1`, id); err != nil {
		return nil, database.Translate(err, "alert")
	}
	return &a, nil
}

// LockForUpdate reads the alert and locks its row. Must be called inside WithTx.
func (r *AlertRepository) LockForUpdate(ctx context.Context, id string) (*domain.Alert, error) {
	var a domain.Alert
	if err := r.db.Executor(ctx).GetContext(ctx, &a, `SELECT `+alertColumns+` FROM alerts a WHERE a.id = $1 FOR UPDATE`, id); err != nil {
		return nil, database.Translate(err, "alert")
	}
	return &a, nil
}

// HasOpen reports whether the product has an active or pending alert
func (r *AlertRepository) HasOpen(ctx context.Context, productID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM alerts WHERE product_id = $1 AND state = ANY($2))`
	err := r.db.Executor(ctx).GetContext(ctx, &exists, query, productID, pq.Array(domain.OpenAlertStates))
	return exists, database.Translate(err, "alert")
}

// List lists alerts, newest first
func (r *AlertRepository) List(ctx context.Context, f AlertFilter, page Page) ([]*domain.Alert, int64, error) {
	var where filter
	if f.State != "" {
		where.add("a.state = ?", f.State)
	}
	if f.ProductID != "" {
		where.add("a.product_id = ?", f.ProductID)
	}
	alerts := []*domain.Alert{}
	total, err := listPage(ctx, r.db.Executor(ctx), &alerts, alertFrom, alertReadColumns, "a.created_at DESC", &where, page, "alert")
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// ListUnprocessed returns open alerts that have not produced an order
func (r *AlertRepository) ListUnprocessed(ctx context.Context) ([]*domain.Alert, error) {
	return r.selectOpenUnused(ctx, `SELECT `+alertReadColumns+` `+alertFrom+`
		WHERE a.state = ANY($1) AND NOT a.used_for_order AND a.order_id IS NULL
		ORDER BY a.created_at`, pq.Array(domain.OpenAlertStates))
}

// ListStale returns open alerts without an order created before the cutoff
func (r *AlertRepository) ListStale(ctx context.Context, before time.Time) ([]*domain.Alert, error) {
	return r.selectOpenUnused(ctx, `SELECT `+alertReadColumns+` `+alertFrom+`
		WHERE a.state = ANY($1) AND NOT a.used_for_order AND a.order_id IS NULL AND a.created_at < $2
		ORDER BY a.created_at`, pq.Array(domain.OpenAlertStates), before)
}

func (r *AlertRepository) selectOpenUnused(ctx context.Context, query string, args ...interface{}) ([]*domain.Alert, error) {
	alerts := []*domain.Alert{}
	if err := r.db.Executor(ctx).SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, database.Translate(err, "alert")
	}
	return alerts, nil
}

// Update writes the mutable fields of an alert
func (r *AlertRepository) Update(ctx context.Context, a *domain.Alert) error {
	query := `
		UPDATE alerts SET state = $2, message = $3, suggested_stock = $4, used_for_order = $5,
			order_id = $6, silenced_at = $7, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		a.ID, a.State, a.Message, a.SuggestedStock, a.UsedForOrder, a.OrderID, a.SilencedAt)
	return expectAffected(result, err, "alert")
}

// Delete deletes an alert
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	return expectAffected(result, err, "alert")
}
