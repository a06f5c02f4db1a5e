package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/database"
)

// NotificationRepository handles in-app notification persistence
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, user_id, message, read, created_at`

// Create creates a notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `INSERT INTO notifications (id, user_id, message) VALUES ($1, $2, $3) RETURNING read, created_at`
	err := r.db.Executor(ctx).QueryRowxContext(ctx, query, n.ID, n.UserID, n.Message).Scan(&n.Read, &n.CreatedAt)
	return database.Translate(err, "notification")
}

// GetByID gets a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := r.db.Executor(ctx).GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return nil, database.Translate(err, "notification")
	}
	return &n, nil
}

// ListForUser lists a user's notifications, newest first
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, page Page) ([]*domain.Notification, int64, error) {
	var where filter
	where.add("user_id = ?", userID)
	if unreadOnly {
		where.add("NOT read")
	}
	notifications := []*domain.Notification{}
	total, err := listPage(ctx, r.db.Executor(ctx), &notifications, "FROM notifications", notificationColumns, "created_at DESC", &where, page, "notification")
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return expectAffected(result, err, "notification")
}
