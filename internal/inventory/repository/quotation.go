package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

// QuotationFilter narrows a quotation listing
type QuotationFilter struct {
	State      string
	OrderID    string
	SupplierID string
}

// QuotationRepository handles supplier quotation persistence
type QuotationRepository struct {
	db *database.DB
}

// NewQuotationRepository creates a new quotation repository
func NewQuotationRepository(db *database.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

const quotationColumns = `q.id, q.order_id, q.supplier_id, q.state, q.amount, q.unit_price, q.pdf_url,
	q.created_at, q.updated_at, s.name AS supplier_name`

const quotationFrom = `FROM quotations q JOIN suppliers s ON s.id = q.supplier_id`

// Create creates a new quotation
func (r *QuotationRepository) Create(ctx context.Context, q *domain.Quotation) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	query := `
		INSERT INTO quotations (id, order_id, supplier_id, state, amount, unit_price, pdf_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		q.ID, q.OrderID, q.SupplierID, q.State, q.Amount, q.UnitPrice, q.PDFURL,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	return database.Translate(err, "quotation")
}

// GetByID gets a quotation by ID
func (r *QuotationRepository) GetByID(ctx context.Context, id string) (*domain.Quotation, error) {
	var q domain.Quotation
	if err := r.db.Executor(ctx).GetContext(ctx, &q, `SELECT `+quotationColumns+` `+quotationFrom+` WHERE q.id = $1`, id); err != nil {
		return nil, database.Translate(err, "quotation")
	}
	return &q, nil
}

// LockForUpdate reads the quotation and locks its row. Must be called inside WithTx.
func (r *QuotationRepository) LockForUpdate(ctx context.Context, id string) (*domain.Quotation, error) {
	var q domain.Quotation
	query := `SELECT ` + quotationColumns + ` ` + quotationFrom + ` WHERE q.id = $1 FOR UPDATE OF q`
	if err := r.db.Executor(ctx).GetContext(ctx, &q, query, id); err != nil {
		return nil, database.Translate(err, "quotation")
	}
	return &q, nil
}

// GetByOrder returns the oldest quotation of an order
func (r *QuotationRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Quotation, error) {
	var q domain.Quotation
	query := `SELECT ` + quotationColumns + ` ` + quotationFrom + ` WHERE q.order_id = $1 ORDER BY q.created_at LIMIT 1`
	if err := r.db.Executor(ctx).GetContext(ctx, &q, query, orderID); err != nil {
		return nil, database.Translate(err, "quotation")
	}
	return &q, nil
}

// List lists quotations, newest first
func (r *QuotationRepository) List(ctx context.Context, f QuotationFilter, page Page) ([]*domain.Quotation, int64, error) {
	var where filter
	if f.State != "" {
		where.add("q.state = ?", f.State)
	}
	if f.OrderID != "" {
		where.add("q.order_id = ?", f.OrderID)
	}
	if f.SupplierID != "" {
		where.add("q.supplier_id = ?", f.SupplierID)
	}
	quotations := []*domain.Quotation{}
	total, err := listPage(ctx, r.db.Executor(ctx), &quotations, quotationFrom, quotationColumns, "q.created_at DESC", &where, page, "quotation")
	if err != nil {
		return nil, 0, err
	}
	return quotations, total, nil
}

// Update writes state, amounts and the PDF url
func (r *QuotationRepository) Update(ctx context.Context, q *domain.Quotation) error {
	query := `
		UPDATE quotations SET state = $2, amount = $3, unit_price = $4, pdf_url = $5, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, q.ID, q.State, q.Amount, q.UnitPrice, q.PDFURL)
	return expectAffected(result, err, "quotation")
}

// Delete deletes a quotation
func (r *QuotationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	return expectAffected(result, err, "quotation")
}

// PriceHistoryFilter narrows a price history listing
type PriceHistoryFilter struct {
	ProductID  string
	SupplierID string
}

// PriceHistoryRepository handles the append-only price log
type PriceHistoryRepository struct {
	db *database.DB
}

// NewPriceHistoryRepository creates a new price history repository
func NewPriceHistoryRepository(db *database.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

const priceColumns = `h.id, h.product_id, h.supplier_id, h.price, h.recorded_at,
	p.name AS product_name, s.name AS supplier_name`

const priceFrom = `FROM price_history h
	JOIN products p ON p.id = h.product_id
	JOIN suppliers s ON s.id = h.supplier_id`

// Create appends a price row
func (r *PriceHistoryRepository) Create(ctx context.Context, h *domain.PriceHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	query := `
		INSERT INTO price_history (id, product_id, supplier_id, price)
		VALUES ($1, $2, $3, $4)
		RETURNING recorded_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query, h.ID, h.ProductID, h.SupplierID, h.Price).Scan(&h.RecordedAt)
	return database.Translate(err, "price history")
}

// Latest returns the most recent price for the pair, or NotFound
func (r *PriceHistoryRepository) Latest(ctx context.Context, productID, supplierID string) (*domain.PriceHistory, error) {
	var h domain.PriceHistory
	query := `SELECT ` + priceColumns + ` ` + priceFrom + `
		WHERE h.product_id = $1 AND h.supplier_id = $2
		ORDER BY h.recorded_at DESC LIMIT 1`
	if err := r.db.Executor(ctx).GetContext(ctx, &h, query, productID, supplierID); err != nil {
		return nil, database.Translate(err, "price history")
	}
	return &h, nil
}

// List lists recorded prices, newest first
func (r *PriceHistoryRepository) List(ctx context.Context, f PriceHistoryFilter, page Page) ([]*domain.PriceHistory, int64, error) {
	var where filter
	if f.ProductID != "" {
		where.add("h.product_id = ?", f.ProductID)
	}
	if f.SupplierID != "" {
		where.add("h.supplier_id = ?", f.SupplierID)
	}
	rows := []*domain.PriceHistory{}
	total, err := listPage(ctx, r.db.Executor(ctx), &rows, priceFrom, priceColumns, "h.recorded_at DESC", &where, page, "price history")
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
