package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

// AuditFilter narrows an audit listing
type AuditFilter struct {
	Model    string
	ObjectID string
	UserID   string
}

// AuditTrailRepository handles audit log persistence.
// All operations are append-only: no UPDATE or DELETE is permitted.
type AuditTrailRepository struct {
	db *database.DB
}

// NewAuditTrailRepository creates a new audit trail repository
func NewAuditTrailRepository(db *database.DB) *AuditTrailRepository {
	return &AuditTrailRepository{db: db}
}

const auditColumns = `id, user_id, model, object_id, action, description, created_at`

// Create appends an audit entry
func (r *AuditTrailRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO audit_log (id, user_id, model, object_id, action, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		entry.ID, entry.UserID, entry.Model, entry.ObjectID, entry.Action, entry.Description,
	).Scan(&entry.CreatedAt)
	return database.Translate(err, "audit entry")
}

// GetByID gets an audit entry by ID
func (r *AuditTrailRepository) GetByID(ctx context.Context, id string) (*domain.AuditEntry, error) {
	var entry domain.AuditEntry
	if err := r.db.Executor(ctx).GetContext(ctx, &entry, `SELECT `+auditColumns+` FROM audit_log WHERE id = $1`, id); err != nil {
		return nil, database.Translate(err, "audit entry")
	}
	return &entry, nil
}

// List lists audit entries, newest first
func (r *AuditTrailRepository) List(ctx context.Context, f AuditFilter, page Page) ([]*domain.AuditEntry, int64, error) {
	var where filter
	if f.Model != "" {
		where.add("model = ?", f.Model)
	}
	if f.ObjectID != "" {
		where.add("object_id = ?", f.ObjectID)
	}
	if f.UserID != "" {
		where.add("user_id = ?", f.UserID)
	}
	entries := []*domain.AuditEntry{}
	total, err := listPage(ctx, r.db.Executor(ctx), &entries, "FROM audit_log", auditColumns, "created_at DESC", &where, page, "audit entry")
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
