package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/pkg/database"
	"github.com/maestranza/maestranza-backend/pkg/validation"
)

// FixtureFactory inserts catalog rows with unique, valid values
type FixtureFactory struct {
	db  *database.DB
	mu  sync.Mutex
	seq int
	rng *rand.Rand
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory(db *database.DB) *FixtureFactory {
	return &FixtureFactory{db: db, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (f *FixtureFactory) next() (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq, validation.GenerateRUT(f.rng)
}

// ProductFixture describes a product to insert
type ProductFixture struct {
	Stock        int
	StockMinimum int
	Price        string
}

// Catalog is a supplier, category, lot and product chain
type Catalog struct {
	SupplierID string
	CategoryID string
	LotID      string
	ProductID  string
}

// Catalog inserts a supplier, category, lot and one product
func (f *FixtureFactory) Catalog(ctx context.Context, p ProductFixture) (*Catalog, error) {
	n, rut := f.next()
	c := &Catalog{
		SupplierID: uuid.NewString(),
		CategoryID: uuid.NewString(),
		LotID:      uuid.NewString(),
		ProductID:  uuid.NewString(),
	}
	if p.Price == "" {
		p.Price = "1990"
	}

	stmts := []struct {
		q    string
		args []interface{}
	}{
		{`INSERT INTO suppliers (id, name, rut, email) VALUES ($1, $2, $3, $4)`,
			[]interface{}{c.SupplierID, fmt.Sprintf("Proveedor %d", n), rut, fmt.Sprintf("proveedor%d@example.cl", n)}},
		{`INSERT INTO categories (id, name) VALUES ($1, $2)`,
			[]interface{}{c.CategoryID, fmt.Sprintf("Categoria %d", n)}},
		{`INSERT INTO lots (id, code, supplier_id, category_id) VALUES ($1, $2, $3, $4)`,
			[]interface{}{c.LotID, fmt.Sprintf("LOT-%05d", n), c.SupplierID, c.CategoryID}},
		{`INSERT INTO products (id, name, barcode, sku, price, stock, stock_minimum, lot_id)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{c.ProductID, fmt.Sprintf("Producto %d", n), fmt.Sprintf("780%08d", n), fmt.Sprintf("SKU-%04d", n),
				p.Price, p.Stock, p.StockMinimum, c.LotID}},
	}

	for _, s := range stmts {
		if _, err := f.db.ExecContext(ctx, s.q, s.args...); err != nil {
			return nil, fmt.Errorf("fixture insert failed: %w", err)
		}
	}
	return c, nil
}

// User inserts an active user with the given role and returns its id
func (f *FixtureFactory) User(ctx context.Context, role string) (string, error) {
	n, rut := f.next()
	id := uuid.NewString()
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, rut, role) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, fmt.Sprintf("user%d", n), fmt.Sprintf("user%d@maestranza.cl", n), "x", rut, role)
	if err != nil {
		return "", fmt.Errorf("fixture insert failed: %w", err)
	}
	return id, nil
}
