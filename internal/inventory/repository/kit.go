package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

// KitRepository handles kit and kit item persistence
type KitRepository struct {
	db *database.DB
}

// NewKitRepository creates a new kit repository
func NewKitRepository(db *database.DB) *KitRepository {
	return &KitRepository{db: db}
}

const kitItemColumns = `i.id, i.kit_id, i.product_id, i.quantity, p.name AS product_name`

// Create creates a kit without items
func (r *KitRepository) Create(ctx context.Context, k *domain.Kit) error {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	query := `INSERT INTO kits (id, name, description) VALUES ($1, $2, $3) RETURNING created_at`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query, k.ID, k.Name, k.Description).Scan(&k.CreatedAt)
	return database.Translate(err, "kit")
}

// GetByID gets a kit with its items
func (r *KitRepository) GetByID(ctx context.Context, id string) (*domain.Kit, error) {
	var k domain.Kit
	if err := r.db.Executor(ctx).GetContext(ctx, &k, `SELECT id, name, description, created_at FROM kits WHERE id = $1`, id); err != nil {
		return nil, database.Translate(err, "kit")
	}
	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	k.Items = items
	return &k, nil
}

// List lists kits without their items
func (r *KitRepository) List(ctx context.Context, page Page) ([]*domain.Kit, int64, error) {
	var where filter
	kits := []*domain.Kit{}
	total, err := listPage(ctx, r.db.Executor(ctx), &kits, "FROM kits", "id, name, description, created_at", "name", &where, page, "kit")
	if err != nil {
		return nil, 0, err
	}
	return kits, total, nil
}

// Delete deletes a kit and, by cascade, its items
func (r *KitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM kits WHERE id = $1`, id)
	return expectAffected(result, err, "kit")
}

// CreateItem adds a product line to a kit
func (r *KitRepository) CreateItem(ctx context.Context, item *domain.KitItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `INSERT INTO kit_items (id, kit_id, product_id, quantity) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query, item.ID, item.KitID, item.ProductID, item.Quantity)
	return database.Translate(err, "kit item")
}

// GetItem gets a kit item by ID
func (r *KitRepository) GetItem(ctx context.Context, id string) (*domain.KitItem, error) {
	var item domain.KitItem
	query := `SELECT ` + kitItemColumns + ` FROM kit_items i JOIN products p ON p.id = i.product_id WHERE i.id = $1`
	if err := r.db.Executor(ctx).GetContext(ctx, &item, query, id); err != nil {
		return nil, database.Translate(err, "kit item")
	}
	return &item, nil
}

// ListItems lists the items of a kit
func (r *KitRepository) ListItems(ctx context.Context, kitID string) ([]*domain.KitItem, error) {
	items := []*domain.KitItem{}
	query := `SELECT ` + kitItemColumns + ` FROM kit_items i JOIN products p ON p.id = i.product_id
		WHERE i.kit_id = $1 ORDER BY p.name`
	if err := r.db.Executor(ctx).SelectContext(ctx, &items, query, kitID); err != nil {
		return nil, database.Translate(err, "kit item")
	}
	return items, nil
}

// UpdateItem writes the product and quantity of a kit item
func (r *KitRepository) UpdateItem(ctx context.Context, item *domain.KitItem) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE kit_items SET product_id = $2, quantity = $3 WHERE id = $1`, item.ID, item.ProductID, item.Quantity)
	return expectAffected(result, err, "kit item")
}

// DeleteItem removes a kit item
func (r *KitRepository) DeleteItem(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM kit_items WHERE id = $1`, id)
	return expectAffected(result, err, "kit item")
}
