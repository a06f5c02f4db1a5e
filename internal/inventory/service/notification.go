package service

import (
	"context"
	"fmt"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/mail"
)

// NotificationService fans messages out to users and, for critical
// events, to the administrators by email.
type NotificationService struct {
	repo       NotificationStore
	recipients RecipientDirectory
	mailer     mail.Sender
	logger     *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo NotificationStore, recipients RecipientDirectory, mailer mail.Sender, log *logger.Logger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		recipients: recipients,
		mailer:     mailer,
		logger:     log.WithComponent("notifications"),
	}
}

// NotifyRoles creates one notification per active user holding any of
// the roles. It returns the number of notifications created.
func (s *NotificationService) NotifyRoles(ctx context.Context, message string, roles ...string) (int, error) {
	userIDs, err := s.recipients.IDsByRoles(ctx, roles...)
	if err != nil {
		return 0, fmt.Errorf("resolve recipients: %w", err)
	}

	sent := 0
	for _, userID := range userIDs {
		if err := s.Notify(ctx, userID, message); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to notify user")
			continue
		}
		sent++
	}

	s.logger.Debug().Strs("roles", roles).Int("sent", sent).Msg("role notification dispatched")
	return sent, nil
}

// Notify creates a notification for one user
func (s *NotificationService) Notify(ctx context.Context, userID, message string) error {
	n := &domain.Notification{UserID: userID, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForUser lists the user's notifications, newest first
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, page repository.Page) ([]*domain.Notification, int64, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, page)
}

// MarkRead flags a notification as read. Only its owner may do so.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, errors.Forbidden("notification belongs to another user")
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

// SendCritical emails the administrators
func (s *NotificationService) SendCritical(ctx context.Context, subject, message string) error {
	if err := s.mailer.Send(ctx, subject, message); err != nil {
		return fmt.Errorf("send critical mail: %w", err)
	}
	return nil
}
