package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
)

// EvaluationResult summarizes one low-stock sweep
type EvaluationResult struct {
	Scanned  int      `json:"scanned"`
	Created  int      `json:"created"`
	Failed   int      `json:"failed"`
	AlertIDs []string `json:"alert_ids"`
}

// ManualAlertInput is a manually raised alert
type ManualAlertInput struct {
	ProductID      string `json:"product_id" validate:"required"`
	Message        string `json:"message"`
	SuggestedStock *int   `json:"suggested_stock,omitempty" validate:"omitempty,gt=0"`
}

// AlertService raises, silences and retires low-stock alerts. A product
// has at most one open alert at a time.
type AlertService struct {
	tx            Transactor
	products      ProductStore
	alerts        AlertStore
	audit         *AuditService
	notifications *NotificationService
	orders        OrderGenerator
	publisher     *events.InventoryEventPublisher
	logger        *logger.Logger
	now           func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(
	tx Transactor,
	products ProductStore,
	alerts AlertStore,
	audit *AuditService,
	notifications *NotificationService,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *AlertService {
	return &AlertService{
		tx:            tx,
		products:      products,
		alerts:        alerts,
		audit:         audit,
		notifications: notifications,
		publisher:     publisher,
		logger:        log.WithComponent("alerts"),
		now:           time.Now,
	}
}

// SetOrderGenerator wires the order service used by RetryUnprocessedAlerts.
// The order service depends on stock, which depends on alerts, so this
// edge is set after construction.
func (s *AlertService) SetOrderGenerator(orders OrderGenerator) {
	s.orders = orders
}

// EvaluateAllProducts creates a pending alert for every enabled product
// at or below its minimum that has no open alert. Per-product failures
// are counted and never abort the sweep.
func (s *AlertService) EvaluateAllProducts(ctx context.Context) (*EvaluationResult, error) {
	products, err := s.products.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled products: %w", err)
	}

	result := &EvaluationResult{Scanned: len(products), AlertIDs: []string{}}
	for _, p := range products {
		if !p.IsLowStock() {
			continue
		}
		alert, created, err := s.EvaluateProduct(ctx, p.ID)
		if err != nil {
			result.Failed++
			s.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to evaluate product")
			continue
		}
		if created {
			result.Created++
			result.AlertIDs = append(result.AlertIDs, alert.ID)
		}
	}

	s.logger.Info().
		Int("scanned", result.Scanned).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("low stock evaluation completed")
	return result, nil
}

// EvaluateProduct creates a pending alert for one product when it is low
// on stock and has no open alert. The bool reports whether one was created.
func (s *AlertService) EvaluateProduct(ctx context.Context, productID string) (*domain.Alert, bool, error) {
	var alert *domain.Alert
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		// The row lock serializes concurrent evaluations of the product.
		p, err := s.products.LockForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if !p.Enabled || !p.IsLowStock() {
			return nil
		}

		open, err := s.alerts.HasOpen(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("check open alert: %w", err)
		}
		if open {
			return nil
		}

		alert = &domain.Alert{
			ProductID: p.ID,
			State:     domain.AlertPending,
			Message:   lowStockMessage(p),
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			return err
		}
		alert.ProductName = p.Name
		alert.SKU = p.SKU

		return s.audit.RecordCreate(ctx, domain.ModelAlert, alert.ID, alert.Message)
	})
	if errors.Is(err, errors.ErrDuplicate) {
		// Another evaluation won the race for the open alert slot.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if alert == nil {
		return nil, false, nil
	}

	s.logger.Info().Str("product_id", productID).Str("alert_id", alert.ID).Msg("low stock alert created")
	s.publisher.PublishAlertCreated(ctx, alert)
	return alert, true, nil
}

func lowStockMessage(p *domain.Product) string {
	return fmt.Sprintf("low stock for %s (%s): %d units, minimum %d", p.Name, p.SKU, p.Stock, p.StockMinimum)
}

// SilenceStaleAlerts flips open alerts older than maxAge that never
// produced an order to silenced, then emails one summary.
func (s *AlertService) SilenceStaleAlerts(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.now()
	stale, err := s.alerts.ListStale(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("list stale alerts: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var silenced []*domain.Alert
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, candidate := range stale {
			a, err := s.alerts.LockForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !a.CanSpawnOrder() {
				continue
			}
			a.State = domain.AlertSilenced
			a.SilencedAt = &now
			if err := s.alerts.Update(ctx, a); err != nil {
				return err
			}
			if err := s.audit.RecordUpdate(ctx, domain.ModelAlert, a.ID, "alert silenced after going unattended"); err != nil {
				return err
			}
			a.ProductName = candidate.ProductName
			a.SKU = candidate.SKU
			silenced = append(silenced, a)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(silenced) == 0 {
		return 0, nil
	}

	subject := fmt.Sprintf("%d stock alerts silenced without an order", len(silenced))
	if err := s.notifications.SendCritical(ctx, subject, silencedSummary(silenced, maxAge)); err != nil {
		s.logger.Error().Err(err).Int("count", len(silenced)).Msg("failed to send silenced alert summary")
	}

	s.logger.Warn().Int("count", len(silenced)).Dur("max_age", maxAge).Msg("stale alerts silenced")
	return len(silenced), nil
}

func silencedSummary(alerts []*domain.Alert, maxAge time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following alerts stayed open for more than %s without producing an order:\n\n", maxAge)
	for _, a := range alerts {
		fmt.Fprintf(&b, "- %s (%s): %s, raised %s\n", a.ProductName, a.SKU, a.Message, a.CreatedAt.Format(time.DateTime))
	}
	return b.String()
}

// RetryUnprocessedAlerts asks the order generator for every open alert
// that has not produced an order. It returns the number of orders created.
func (s *AlertService) RetryUnprocessedAlerts(ctx context.Context) (int, error) {
	if s.orders == nil {
		return 0, errors.Internal("alert service has no order generator")
	}

	pending, err := s.alerts.ListUnprocessed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed alerts: %w", err)
	}

	created := 0
	for _, a := range pending {
		order, err := s.orders.CreateOrderFromAlert(ctx, a.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("alert_id", a.ID).Str("product_id", a.ProductID).Msg("order generation retry failed")
			continue
		}
		created++
		s.logger.Info().Str("alert_id", a.ID).Str("order_id", order.ID).Msg("order generated on retry")
	}
	return created, nil
}

// CreateManual raises an active alert by hand
func (s *AlertService) CreateManual(ctx context.Context, in ManualAlertInput) (*domain.Alert, error) {
	var alert *domain.Alert
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.products.LockForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		open, err := s.alerts.HasOpen(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("check open alert: %w", err)
		}
		if open {
			return errors.Duplicate("product already has an open alert")
		}

		message := in.Message
		if message == "" {
			message = lowStockMessage(p)
		}
		alert = &domain.Alert{
			ProductID:      p.ID,
			State:          domain.AlertActive,
			Message:        message,
			SuggestedStock: in.SuggestedStock,
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			return err
		}
		alert.ProductName = p.Name
		alert.SKU = p.SKU

		return s.audit.RecordCreate(ctx, domain.ModelAlert, alert.ID, "manual alert: "+message)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishAlertCreated(ctx, alert)
	return alert, nil
}

// Archive closes an alert
func (s *AlertService) Archive(ctx context.Context, id string) (*domain.Alert, error) {
	var alert *domain.Alert
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		alert, err = s.archive(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// archive runs inside the caller's transaction
func (s *AlertService) archive(ctx context.Context, id string) (*domain.Alert, error) {
	a, err := s.alerts.LockForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.State == domain.AlertArchived {
		return nil, errors.StateConflict("alert is already archived")
	}
	a.State = domain.AlertArchived
	if err := s.alerts.Update(ctx, a); err != nil {
		return nil, err
	}
	if err := s.audit.RecordUpdate(ctx, domain.ModelAlert, a.ID, "alert archived"); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an alert that is still actionable
func (s *AlertService) Delete(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.alerts.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case a.State == domain.AlertArchived, a.State == domain.AlertSilenced:
			return errors.StateConflict(fmt.Sprintf("a %s alert cannot be deleted", a.State))
		case a.UsedForOrder || a.OrderID != nil:
			return errors.StateConflict("an alert that generated an order cannot be deleted")
		}
		if err := s.alerts.Delete(ctx, a.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelAlert, a.ID, "alert deleted: "+a.Message)
	})
}

// Get returns a single alert
func (s *AlertService) Get(ctx context.Context, id string) (*domain.Alert, error) {
	return s.alerts.GetByID(ctx, id)
}

// List lists alerts, newest first
func (s *AlertService) List(ctx context.Context, f repository.AlertFilter, page repository.Page) ([]*domain.Alert, int64, error) {
	if f.State != "" && !domain.IsValidAlertState(f.State) {
		return nil, 0, errors.ValidationField("state", "unknown alert state")
	}
	return s.alerts.List(ctx, f, page)
}
