package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/maestranza/maestranza-backend/internal/user/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, rut, phone,
	role, address, comuna_id, position, is_active, created_at, updated_at`

// UserRepository handles user persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and fills in the generated timestamps
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, rut, phone,
		                   role, address, comuna_id, position, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.Executor(ctx).QueryRowxContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.RUT,
		user.Phone,
		user.Role,
		user.Address,
		user.ComunaID,
		user.Position,
		user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	return database.Translate(err, "user")
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.Executor(ctx).GetContext(ctx, &user, query, id); err != nil {
		return nil, database.Translate(err, "user")
	}
	return &user, nil
}

// GetByUsername gets a user by username, case-insensitively
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	if err := r.db.Executor(ctx).GetContext(ctx, &user, query, username); err != nil {
		return nil, database.Translate(err, "user")
	}
	return &user, nil
}

// List lists users with pagination
func (r *UserRepository) List(ctx context.Context, page, perPage int) ([]*domain.User, int64, error) {
	exec := r.db.Executor(ctx)

	var total int64
	if err := exec.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, database.Translate(err, "user")
	}

	users := []*domain.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username LIMIT $1 OFFSET $2`
	if err := exec.SelectContext(ctx, &users, query, perPage, (page-1)*perPage); err != nil {
		return nil, 0, database.Translate(err, "user")
	}

	return users, total, nil
}

// IDsByRoles returns the ids of active users holding any of the roles
func (r *UserRepository) IDsByRoles(ctx context.Context, roles ...string) ([]string, error) {
	ids := []string{}
	if len(roles) == 0 {
		return ids, nil
	}

	query := `SELECT id FROM users WHERE is_active AND role = ANY($1) ORDER BY created_at`
	if err := r.db.Executor(ctx).SelectContext(ctx, &ids, query, pq.Array(roles)); err != nil {
		return nil, database.Translate(err, "user")
	}
	return ids, nil
}
