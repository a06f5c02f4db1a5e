package service

import (
	"context"
	"fmt"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/validation"
	"github.com/shopspring/decimal"
)

// PriceHistoryService keeps the per product and supplier price log
type PriceHistoryService struct {
	repo   PriceHistoryStore
	logger *logger.Logger
}

// NewPriceHistoryService creates a new price history service
func NewPriceHistoryService(repo PriceHistoryStore, log *logger.Logger) *PriceHistoryService {
	return &PriceHistoryService{
		repo:   repo,
		logger: log.WithComponent("price_history"),
	}
}

// Record appends a price unless it equals the latest recorded price for
// the same product and supplier. The bool reports whether a row was added.
func (s *PriceHistoryService) Record(ctx context.Context, productID, supplierID string, price decimal.Decimal) (*domain.PriceHistory, bool, error) {
	if res := validation.ValidatePrice(price); !res.Valid {
		return nil, false, errors.ValidationField("price", res.Message)
	}

	latest, err := s.repo.Latest(ctx, productID, supplierID)
	switch {
	case err == nil && latest.Price.Equal(price):
		return latest, false, nil
	case err != nil && !errors.Is(err, errors.ErrNotFound):
		return nil, false, fmt.Errorf("latest price: %w", err)
	}

	h := &domain.PriceHistory{ProductID: productID, SupplierID: supplierID, Price: price}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, false, fmt.Errorf("record price: %w", err)
	}

	s.logger.Debug().
		Str("product_id", productID).
		Str("supplier_id", supplierID).
		Str("price", price.String()).
		Msg("price recorded")
	return h, true, nil
}

// List lists recorded prices, newest first
func (s *PriceHistoryService) List(ctx context.Context, f repository.PriceHistoryFilter, page repository.Page) ([]*domain.PriceHistory, int64, error) {
	return s.repo.List(ctx, f, page)
}
