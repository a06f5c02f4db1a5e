package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

const productColumns = `p.id, p.name, p.description, p.barcode, p.sku, p.price, p.stock, p.stock_minimum,
	p.lot_id, p.enabled, p.created_at, p.updated_at`

const productReadColumns = productColumns + `, l.code AS lot_code, l.supplier_id, s.name AS supplier_name`

const productFrom = `FROM products p
	JOIN lots l ON l.id = p.lot_id
	LEFT JOIN suppliers s ON s.id = l.supplier_id`

// ProductFilter narrows a product listing
type ProductFilter struct {
	Search   string
	LotID    string
	LowStock bool
}

// ProductRepository handles product persistence
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, name, description, barcode, sku, price, stock, stock_minimum, lot_id, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		p.ID, p.Name, p.Description, p.Barcode, p.SKU, p.Price,
		p.Stock, p.StockMinimum, p.LotID, p.Enabled,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	return database.Translate(err, "product")
}

// GetByID gets a product with its lot and supplier
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productReadColumns + ` ` + productFrom + ` WHERE p.id = $1`
	if err := r.db.Executor(ctx).GetContext(ctx, &p, query, id); err != nil {
		return nil, database.Translate(err, "product")
	}
	return &p, nil
}

// GetByCode gets a product by barcode or SKU, for scanner lookups
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productReadColumns + ` ` + productFrom + ` WHERE p.barcode = $1 OR p.sku = upper($1) LIMIT 1`
	if err := r.db.Executor(ctx).GetContext(ctx, &p, query, code); err != nil {
		return nil, database.Translate(err, "product")
	}
	return &p, nil
}

// LockForUpdate reads the product row and holds a row lock on it until the
// surrounding transaction ends. Must be called inside WithTx.
func (r *ProductRepository) LockForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 FOR UPDATE`
	if err := r.db.Executor(ctx).GetContext(ctx, &p, query, id); err != nil {
		return nil, database.Translate(err, "product")
	}
	return &p, nil
}

// List lists products with pagination
func (r *ProductRepository) List(ctx context.Context, f ProductFilter, page Page) ([]*domain.Product, int64, error) {
	var where filter
	if f.Search != "" {
		like := "%" + f.Search + "%"
		where.add("(p.name ILIKE ? OR p.sku ILIKE ? OR p.barcode LIKE ?)", like, like, like)
	}
	if f.LotID != "" {
		where.add("p.lot_id = ?", f.LotID)
	}
	if f.LowStock {
		where.add("p.stock <= p.stock_minimum")
	}

	products := []*domain.Product{}
	total, err := listPage(ctx, r.db.Executor(ctx), &products, productFrom, productReadColumns, "p.name", &where, page, "product")
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListEnabled returns every enabled product
func (r *ProductRepository) ListEnabled(ctx context.Context) ([]*domain.Product, error) {
	products := []*domain.Product{}
	query := `SELECT ` + productReadColumns + ` ` + productFrom + ` WHERE p.enabled ORDER BY p.name`
	if err := r.db.Executor(ctx).SelectContext(ctx, &products, query); err != nil {
		return nil, database.Translate(err, "product")
	}
	return products, nil
}

// Update updates the descriptive fields of a product. Stock is not touched.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products SET
			name = $2, description = $3, barcode = $4, sku = $5, price = $6,
			stock_minimum = $7, lot_id = $8, enabled = $9, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Barcode, p.SKU, p.Price, p.StockMinimum, p.LotID, p.Enabled,
	)
	return expectAffected(result, err, "product")
}

// SetStock overwrites the stock of a product
func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	query := `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, id, stock)
	return expectAffected(result, err, "product")
}

// Delete deletes a product
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return expectAffected(result, err, "product")
}
