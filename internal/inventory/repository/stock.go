package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

// StockFilter narrows entry, exit and count listings
type StockFilter struct {
	ProductID string
	From      *time.Time
	To        *time.Time
}

func (f StockFilter) apply(where *filter, alias, dateColumn string) {
	if f.ProductID != "" {
		where.add(alias+".product_id = ?", f.ProductID)
	}
	if f.From != nil {
		where.add(alias+"."+dateColumn+" >= ?", *f.From)
	}
	if f.To != nil {
		where.add(alias+"."+dateColumn+" < ?", *f.To)
	}
}

// EntryRepository handles stock entry persistence
type EntryRepository struct {
	db *database.DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *database.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const entryColumns = `e.id, e.product_id, e.order_id, e.supplier_id, e.quantity, e.unit_price, e.total,
	e.created_by, e.created_at, p.name AS product_name, s.name AS supplier_name`

const entryFrom = `FROM entries e
	JOIN products p ON p.id = e.product_id
	LEFT JOIN suppliers s ON s.id = e.supplier_id`

// Create creates a new entry. A second entry for the same order is rejected
// by the entries_order_unique index as a Duplicate.
func (r *EntryRepository) Create(ctx context.Context, e *domain.Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO entries (id, product_id, order_id, supplier_id, quantity, unit_price, total, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		e.ID, e.ProductID, e.OrderID, e.SupplierID, e.Quantity, e.UnitPrice, e.Total, e.CreatedBy,
	).Scan(&e.CreatedAt)
	return database.Translate(err, "entry")
}

// GetByID gets an entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	var e domain.Entry
	if err := r.db.Executor(ctx).GetContext(ctx, &e, `SELECT `+entryColumns+` `+entryFrom+` WHERE e.id = $1`, id); err != nil {
		return nil, database.Translate(err, "entry")
	}
	return &e, nil
}

// ExistsForOrder reports whether an entry already references the order
func (r *EntryRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.db.Executor(ctx).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM entries WHERE order_id = $1)`, orderID)
	return exists, database.Translate(err, "entry")
}

// List lists entries, newest first
func (r *EntryRepository) List(ctx context.Context, f StockFilter, page Page) ([]*domain.Entry, int64, error) {
	var where filter
	f.apply(&where, "e", "created_at")
	entries := []*domain.Entry{}
	total, err := listPage(ctx, r.db.Executor(ctx), &entries, entryFrom, entryColumns, "e.created_at DESC", &where, page, "entry")
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Update writes quantity, unit price and total
func (r *EntryRepository) Update(ctx context.Context, e *domain.Entry) error {
	query := `UPDATE entries SET quantity = $2, unit_price = $3, total = $4 WHERE id = $1`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, e.ID, e.Quantity, e.UnitPrice, e.Total)
	return expectAffected(result, err, "entry")
}

// Delete deletes an entry
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
	return expectAffected(result, err, "entry")
}

// ExitRepository handles stock exit persistence
type ExitRepository struct {
	db *database.DB
}

// NewExitRepository creates a new exit repository
func NewExitRepository(db *database.DB) *ExitRepository {
	return &ExitRepository{db: db}
}

const exitColumns = `x.id, x.product_id, x.quantity, x.reason, x.responsible_id, x.note, x.created_at,
	p.name AS product_name`

const exitFrom = `FROM exits x JOIN products p ON p.id = x.product_id`

// Create creates a new exit
func (r *ExitRepository) Create(ctx context.Context, x *domain.Exit) error {
	if x.ID == "" {
		x.ID = uuid.New().String()
	}
	query := `
		INSERT INTO exits (id, product_id, quantity, reason, responsible_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		x.ID, x.ProductID, x.Quantity, x.Reason, x.ResponsibleID, x.Note,
	).Scan(&x.CreatedAt)
	return database.Translate(err, "exit")
}

// GetByID gets an exit by ID
func (r *ExitRepository) GetByID(ctx context.Context, id string) (*domain.Exit, error) {
	var x domain.Exit
	if err := r.db.Executor(ctx).GetContext(ctx, &x, `SELECT `+exitColumns+` `+exitFrom+` WHERE x.id = $1`, id); err != nil {
		return nil, database.Translate(err, "exit")
	}
	return &x, nil
}

// List lists exits, newest first
func (r *ExitRepository) List(ctx context.Context, f StockFilter, page Page) ([]*domain.Exit, int64, error) {
	var where filter
	f.apply(&where, "x", "created_at")
	exits := []*domain.Exit{}
	total, err := listPage(ctx, r.db.Executor(ctx), &exits, exitFrom, exitColumns, "x.created_at DESC", &where, page, "exit")
	if err != nil {
		return nil, 0, err
	}
	return exits, total, nil
}

// SumSince returns the quantity that left stock for the product since the given time
func (r *ExitRepository) SumSince(ctx context.Context, productID string, since time.Time) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(quantity), 0) FROM exits WHERE product_id = $1 AND created_at >= $2`
	err := r.db.Executor(ctx).GetContext(ctx, &total, query, productID, since)
	return total, database.Translate(err, "exit")
}

// Delete deletes an exit
func (r *ExitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM exits WHERE id = $1`, id)
	return expectAffected(result, err, "exit")
}

// PhysicalCountRepository handles physical count persistence
type PhysicalCountRepository struct {
	db *database.DB
}

// NewPhysicalCountRepository creates a new physical count repository
func NewPhysicalCountRepository(db *database.DB) *PhysicalCountRepository {
	return &PhysicalCountRepository{db: db}
}

const countColumns = `c.id, c.product_id, c.stock_real, c.difference, c.responsible_id, c.reconciled,
	c.counted_at, p.name AS product_name`

const countFrom = `FROM physical_counts c JOIN products p ON p.id = c.product_id`

// Create creates a new physical count
func (r *PhysicalCountRepository) Create(ctx context.Context, c *domain.PhysicalCount) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO physical_counts (id, product_id, stock_real, difference, responsible_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING counted_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		c.ID, c.ProductID, c.StockReal, c.Difference, c.ResponsibleID,
	).Scan(&c.CountedAt)
	return database.Translate(err, "physical count")
}

// GetByID gets a physical count by ID
func (r *PhysicalCountRepository) GetByID(ctx context.Context, id string) (*domain.PhysicalCount, error) {
	var c domain.PhysicalCount
	if err := r.db.Executor(ctx).GetContext(ctx, &c, `SELECT `+countColumns+` `+countFrom+` WHERE c.id = $1`, id); err != nil {
		return nil, database.Translate(err, "physical count")
	}
	return &c, nil
}

// List lists physical counts, newest first
func (r *PhysicalCountRepository) List(ctx context.Context, f StockFilter, page Page) ([]*domain.PhysicalCount, int64, error) {
	var where filter
	f.apply(&where, "c", "counted_at")
	counts := []*domain.PhysicalCount{}
	total, err := listPage(ctx, r.db.Executor(ctx), &counts, countFrom, countColumns, "c.counted_at DESC", &where, page, "physical count")
	if err != nil {
		return nil, 0, err
	}
	return counts, total, nil
}

// MarkReconciled flags a count as applied to stock
func (r *PhysicalCountRepository) MarkReconciled(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `UPDATE physical_counts SET reconciled = TRUE WHERE id = $1`, id)
	return expectAffected(result, err, "physical count")
}
