package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

// LotRepository handles lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

const lotColumns = `l.id, l.code, l.supplier_id, l.category_id, l.manufacture_date, l.expiry_date,
	l.notes, l.created_at, s.name AS supplier_name, c.name AS category_name`

const lotFrom = `FROM lots l
	LEFT JOIN suppliers s ON s.id = l.supplier_id
	LEFT JOIN categories c ON c.id = l.category_id`

// Create creates a new lot
func (r *LotRepository) Create(ctx context.Context, l *domain.Lot) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	query := `
		INSERT INTO lots (id, code, supplier_id, category_id, manufacture_date, expiry_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		l.ID, l.Code, l.SupplierID, l.CategoryID, l.ManufactureDate, l.ExpiryDate, l.Notes,
	).Scan(&l.CreatedAt)
	return database.Translate(err, "lot")
}

// GetByID gets a lot by ID
func (r *LotRepository) GetByID(ctx context.Context, id string) (*domain.Lot, error) {
	var l domain.Lot
	if err := r.db.Executor(ctx).GetContext(ctx, &l, `SELECT `+lotColumns+` `+lotFrom+` WHERE l.id = $1`, id); err != nil {
		return nil, database.Translate(err, "lot")
	}
	return &l, nil
}

// List lists lots, optionally of one supplier
func (r *LotRepository) List(ctx context.Context, supplierID string, page Page) ([]*domain.Lot, int64, error) {
	var where filter
	if supplierID != "" {
		where.add("l.supplier_id = ?", supplierID)
	}
	lots := []*domain.Lot{}
	total, err := listPage(ctx, r.db.Executor(ctx), &lots, lotFrom, lotColumns, "l.code", &where, page, "lot")
	if err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// Update updates a lot
func (r *LotRepository) Update(ctx context.Context, l *domain.Lot) error {
	query := `
		UPDATE lots SET code = $2, supplier_id = $3, category_id = $4,
			manufacture_date = $5, expiry_date = $6, notes = $7
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		l.ID, l.Code, l.SupplierID, l.CategoryID, l.ManufactureDate, l.ExpiryDate, l.Notes)
	return expectAffected(result, err, "lot")
}

// Delete deletes a lot
func (r *LotRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM lots WHERE id = $1`, id)
	return expectAffected(result, err, "lot")
}

// CountProducts returns how many products belong to the lot
func (r *LotRepository) CountProducts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.Executor(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE lot_id = $1`, id)
	return n, database.Translate(err, "lot")
}

// SupplierRepository handles supplier persistence
type SupplierRepository struct {
	db *database.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *database.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

const supplierColumns = `id, name, rut, email, address, comuna_id, phone, created_at, updated_at`

// Create creates a new supplier
func (r *SupplierRepository) Create(ctx context.Context, s *domain.Supplier) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `
		INSERT INTO suppliers (id, name, rut, email, address, comuna_id, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		s.ID, s.Name, s.RUT, s.Email, s.Address, s.ComunaID, s.Phone,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return database.Translate(err, "supplier")
}

// GetByID gets a supplier by ID
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*domain.Supplier, error) {
	var s domain.Supplier
	if err := r.db.Executor(ctx).GetContext(ctx, &s, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id); err != nil {
		return nil, database.Translate(err, "supplier")
	}
	return &s, nil
}

// List lists suppliers
func (r *SupplierRepository) List(ctx context.Context, search string, page Page) ([]*domain.Supplier, int64, error) {
	var where filter
	if search != "" {
		like := "%" + search + "%"
		where.add("(name ILIKE ? OR rut LIKE ?)", like, like)
	}
	suppliers := []*domain.Supplier{}
	total, err := listPage(ctx, r.db.Executor(ctx), &suppliers, "FROM suppliers", supplierColumns, "name", &where, page, "supplier")
	if err != nil {
		return nil, 0, err
	}
	return suppliers, total, nil
}

// Update updates a supplier
func (r *SupplierRepository) Update(ctx context.Context, s *domain.Supplier) error {
	query := `
		UPDATE suppliers SET name = $2, rut = $3, email = $4, address = $5,
			comuna_id = $6, phone = $7, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		s.ID, s.Name, s.RUT, s.Email, s.Address, s.ComunaID, s.Phone)
	return expectAffected(result, err, "supplier")
}

// Delete deletes a supplier
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	return expectAffected(result, err, "supplier")
}

// CountReferences returns how many lots, entries and orders point at the supplier
func (r *SupplierRepository) CountReferences(ctx context.Context, id string) (int, error) {
	var n int
	query := `
		SELECT (SELECT COUNT(*) FROM lots WHERE supplier_id = $1)
		     + (SELECT COUNT(*) FROM entries WHERE supplier_id = $1)
		     + (SELECT COUNT(*) FROM orders WHERE supplier_id = $1)
	`
	err := r.db.Executor(ctx).GetContext(ctx, &n, query, id)
	return n, database.Translate(err, "supplier")
}

// CategoryRepository handles category persistence
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `INSERT INTO categories (id, name, description) VALUES ($1, $2, $3) RETURNING created_at`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query, c.ID, c.Name, c.Description).Scan(&c.CreatedAt)
	return database.Translate(err, "category")
}

// GetByID gets a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	query := `SELECT id, name, description, created_at FROM categories WHERE id = $1`
	if err := r.db.Executor(ctx).GetContext(ctx, &c, query, id); err != nil {
		return nil, database.Translate(err, "category")
	}
	return &c, nil
}

// List lists categories
func (r *CategoryRepository) List(ctx context.Context, page Page) ([]*domain.Category, int64, error) {
	var where filter
	categories := []*domain.Category{}
	total, err := listPage(ctx, r.db.Executor(ctx), &categories, "FROM categories",
		"id, name, description, created_at", "name", &where, page, "category")
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// Update updates a category
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE categories SET name = $2, description = $3 WHERE id = $1`, c.ID, c.Name, c.Description)
	return expectAffected(result, err, "category")
}

// Delete deletes a category
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return expectAffected(result, err, "category")
}

// CountLots returns how many lots use the category
func (r *CategoryRepository) CountLots(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.Executor(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM lots WHERE category_id = $1`, id)
	return n, database.Translate(err, "category")
}

// GeographyRepository reads the comuna reference data
type GeographyRepository struct {
	db *database.DB
}

// NewGeographyRepository creates a new geography repository
func NewGeographyRepository(db *database.DB) *GeographyRepository {
	return &GeographyRepository{db: db}
}

// ListComunas returns every comuna with its city, region and country
func (r *GeographyRepository) ListComunas(ctx context.Context) ([]*domain.Comuna, error) {
	comunas := []*domain.Comuna{}
	query := `
		SELECT co.id, co.name, ci.name AS city, re.name AS region, cn.name AS country
		FROM comunas co
		JOIN cities ci ON ci.id = co.city_id
		JOIN regions re ON re.id = ci.region_id
		JOIN countries cn ON cn.id = re.country_id
		ORDER BY re.name, co.name
	`
	if err := r.db.Executor(ctx).SelectContext(ctx, &comunas, query); err != nil {
		return nil, database.Translate(err, "comuna")
	}
	return comunas, nil
}
