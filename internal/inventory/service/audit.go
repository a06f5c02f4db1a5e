package service

import (
	"context"
	"fmt"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/logger"
)

// AuditService records append-only audit rows. Writes join the caller's
// transaction, so a failed audit write rolls back the whole mutation.
type AuditService struct {
	repo   AuditStore
	logger *logger.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore, log *logger.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: log.WithComponent("audit"),
	}
}

// RecordCreate records a create action in the audit trail
func (s *AuditService) RecordCreate(ctx context.Context, model, objectID, description string) error {
	return s.record(ctx, model, objectID, domain.AuditCreate, description)
}

// RecordUpdate records an update action in the audit trail
func (s *AuditService) RecordUpdate(ctx context.Context, model, objectID, description string) error {
	return s.record(ctx, model, objectID, domain.AuditUpdate, description)
}

// RecordDelete records a delete action in the audit trail
func (s *AuditService) RecordDelete(ctx context.Context, model, objectID, description string) error {
	return s.record(ctx, model, objectID, domain.AuditDelete, description)
}

func (s *AuditService) record(ctx context.Context, model, objectID, action, description string) error {
	entry := &domain.AuditEntry{
		UserID:      actor.FromContextOrSystem(ctx).UserID(),
		Model:       model,
		ObjectID:    objectID,
		Action:      action,
		Description: description,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit %s %s %s: %w", action, model, objectID, err)
	}
	return nil
}

// Get returns a single audit row
func (s *AuditService) Get(ctx context.Context, id string) (*domain.AuditEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists audit rows, newest first
func (s *AuditService) List(ctx context.Context, f repository.AuditFilter, page repository.Page) ([]*domain.AuditEntry, int64, error) {
	return s.repo.List(ctx, f, page)
}
