package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/document"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/storage"
	"github.com/shopspring/decimal"
)

// QuotationInput is a supplier quotation for a pending order
type QuotationInput struct {
	OrderID    string          `json:"order_id" validate:"required"`
	SupplierID string          `json:"supplier_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// QuotationUpdate changes the figures of a pending quotation
type QuotationUpdate struct {
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// QuotationService manages supplier quotations. A quotation is frozen
// once accepted or rejected.
type QuotationService struct {
	tx         Transactor
	quotations QuotationStore
	orders     OrderStore
	products   ProductStore
	suppliers  SupplierStore
	audit      *AuditService
	store      storage.Store
	logger     *logger.Logger
	now        func() time.Time
}

// NewQuotationService creates a new quotation service
func NewQuotationService(
	tx Transactor,
	quotations QuotationStore,
	orders OrderStore,
	products ProductStore,
	suppliers SupplierStore,
	audit *AuditService,
	store storage.Store,
	log *logger.Logger,
) *QuotationService {
	return &QuotationService{
		tx:         tx,
		quotations: quotations,
		orders:     orders,
		products:   products,
		suppliers:  suppliers,
		audit:      audit,
		store:      store,
		logger:     log.WithComponent("quotations"),
		now:        time.Now,
	}
}

// Create records a quotation against a pending order
func (s *QuotationService) Create(ctx context.Context, in QuotationInput) (*domain.Quotation, error) {
	if !in.Amount.IsPositive() {
		return nil, errors.ValidationField("amount", "must be greater than zero")
	}
	if in.UnitPrice.IsNegative() {
		return nil, errors.ValidationField("unit_price", "must not be negative")
	}

	var q *domain.Quotation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.LockForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return errors.StateConflict("quotations can only be added to a pending order")
		}

		q = &domain.Quotation{
			OrderID:    order.ID,
			SupplierID: in.SupplierID,
			State:      domain.QuotationPending,
			Amount:     in.Amount,
			UnitPrice:  in.UnitPrice,
		}
		if err := s.quotations.Create(ctx, q); err != nil {
			return err
		}
		return s.audit.RecordCreate(ctx, domain.ModelQuotation, q.ID, fmt.Sprintf("quotation of %s for order %s", in.Amount, order.ID))
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Update changes a pending quotation
func (s *QuotationService) Update(ctx context.Context, id string, in QuotationUpdate) (*domain.Quotation, error) {
	return s.mutate(ctx, id, func(q *domain.Quotation) (string, error) {
		if in.Amount != nil {
			if !in.Amount.IsPositive() {
				return "", errors.ValidationField("amount", "must be greater than zero")
			}
			q.Amount = *in.Amount
		}
		if in.UnitPrice != nil {
			if in.UnitPrice.IsNegative() {
				return "", errors.ValidationField("unit_price", "must not be negative")
			}
			q.UnitPrice = *in.UnitPrice
		}
		return fmt.Sprintf("quotation updated: amount %s, unit price %s", q.Amount, q.UnitPrice), nil
	})
}

// Accept accepts a pending quotation
func (s *QuotationService) Accept(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.mutate(ctx, id, func(q *domain.Quotation) (string, error) {
		q.State = domain.QuotationAccepted
		return "quotation accepted", nil
	})
}

// Reject rejects a pending quotation
func (s *QuotationService) Reject(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.mutate(ctx, id, func(q *domain.Quotation) (string, error) {
		q.State = domain.QuotationRejected
		return "quotation rejected", nil
	})
}

func (s *QuotationService) mutate(ctx context.Context, id string, apply func(q *domain.Quotation) (string, error)) (*domain.Quotation, error) {
	var q *domain.Quotation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.quotations.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if q.IsFinal() {
			return errors.StateConflict(fmt.Sprintf("quotation is %s and cannot be modified", q.State))
		}
		desc, err := apply(q)
		if err != nil {
			return err
		}
		if err := s.quotations.Update(ctx, q); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelQuotation, q.ID, desc)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes a pending quotation
func (s *QuotationService) Delete(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.quotations.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if q.State != domain.QuotationPending {
			return errors.StateConflict("only a pending quotation can be deleted")
		}
		if err := s.quotations.Delete(ctx, q.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelQuotation, q.ID, "quotation deleted for order "+q.OrderID)
	})
}

// RenderRequestPDF renders the quotation request sent to the supplier,
// stores it and saves its URL on the quotation
func (s *QuotationService) RenderRequestPDF(ctx context.Context, id string) (*domain.Quotation, error) {
	q, err := s.quotations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.IsFinal() {
		return nil, errors.StateConflict(fmt.Sprintf("quotation is %s and cannot be modified", q.State))
	}
	order, err := s.orders.GetByID(ctx, q.OrderID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, order.ProductID)
	if err != nil {
		return nil, err
	}
	supplier, err := s.suppliers.GetByID(ctx, q.SupplierID)
	if err != nil {
		return nil, err
	}

	data, err := document.RenderQuotationRequest(document.QuotationRequest{
		Quotation: q,
		Order:     order,
		Product:   product,
		Supplier:  supplier,
		IssuedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}

	url, err := s.store.Store(ctx, fmt.Sprintf("quotations/%s.pdf", q.ID), data)
	if err != nil {
		return nil, fmt.Errorf("store quotation pdf: %w", err)
	}

	return s.mutate(ctx, id, func(q *domain.Quotation) (string, error) {
		q.PDFURL = &url
		return "quotation request pdf generated", nil
	})
}

// Get returns a single quotation
func (s *QuotationService) Get(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.quotations.GetByID(ctx, id)
}

// List lists quotations, newest first
func (s *QuotationService) List(ctx context.Context, f repository.QuotationFilter, page repository.Page) ([]*domain.Quotation, int64, error) {
	return s.quotations.List(ctx, f, page)
}
