package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// DefaultConsumptionWindow is the window AverageDailyConsumption uses
// when none is given
const DefaultConsumptionWindow = 30

// Stock change causes carried on StockChanged events
const (
	CauseEntry          = "entry"
	CauseEntryUpdate    = "entry_update"
	CauseEntryDeleted   = "entry_deleted"
	CauseExit           = "exit"
	CauseExitDeleted    = "exit_deleted"
	CauseReconciliation = "reconciliation"
)

// EntryInput is a stock entry request
type EntryInput struct {
	ProductID  string          `json:"product_id" validate:"required"`
	Quantity   int             `json:"quantity" validate:"required,gt=0"`
	SupplierID *string         `json:"supplier_id,omitempty"`
	OrderID    *string         `json:"order_id,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// EntryUpdate changes the quantity and price of a manual entry
type EntryUpdate struct {
	Quantity  *int             `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// ExitInput is a stock exit request
type ExitInput struct {
	ProductID     string  `json:"product_id" validate:"required"`
	Quantity      int     `json:"quantity" validate:"required,gt=0"`
	ResponsibleID *string `json:"responsible_id,omitempty"`
	Reason        string  `json:"reason" validate:"required"`
	Note          string  `json:"note"`
}

// StockService applies entries, exits and physical counts. Every
// mutation locks the product row and writes record, stock and audit in
// one transaction.
type StockService struct {
	tx        Transactor
	products  ProductStore
	entries   EntryStore
	exits     ExitStore
	counts    PhysicalCountStore
	orders    OrderStore
	audit     *AuditService
	prices    *PriceHistoryService
	evaluator StockEvaluator
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewStockService creates a new stock service
func NewStockService(
	tx Transactor,
	products ProductStore,
	entries EntryStore,
	exits ExitStore,
	counts PhysicalCountStore,
	orders OrderStore,
	audit *AuditService,
	prices *PriceHistoryService,
	evaluator StockEvaluator,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *StockService {
	return &StockService{
		tx:        tx,
		products:  products,
		entries:   entries,
		exits:     exits,
		counts:    counts,
		orders:    orders,
		audit:     audit,
		prices:    prices,
		evaluator: evaluator,
		publisher: publisher,
		logger:    log.WithComponent("stock"),
		now:       time.Now,
	}
}

// ApplyEntry records an entry and increments stock
func (s *StockService) ApplyEntry(ctx context.Context, in EntryInput) (*domain.Entry, error) {
	var (
		entry  *domain.Entry
		change events.StockChange
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		entry, change, err = s.applyEntry(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockChanged(ctx, change)
	return entry, nil
}

// applyEntry runs inside the caller's transaction
func (s *StockService) applyEntry(ctx context.Context, in EntryInput) (*domain.Entry, events.StockChange, error) {
	if in.Quantity <= 0 {
		return nil, events.StockChange{}, errors.ValidationField("quantity", "must be greater than zero")
	}
	if in.UnitPrice.IsNegative() {
		return nil, events.StockChange{}, errors.ValidationField("unit_price", "must not be negative")
	}

	// Lock order: order row, then product row. Transition follows the same order.
	if in.OrderID != nil {
		order, err := s.orders.LockForUpdate(ctx, *in.OrderID)
		if err != nil {
			return nil, events.StockChange{}, err
		}
		if order.State != domain.OrderCompleted {
			return nil, events.StockChange{}, errors.StateConflict("only a completed order can generate an entry")
		}
		if order.UsedForEntry {
			return nil, events.StockChange{}, errors.StateConflict("order already generated an entry")
		}
		if order.ProductID != in.ProductID {
			return nil, events.StockChange{}, errors.ValidationField("order_id", "order is for a different product")
		}
		order.UsedForEntry = true
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, events.StockChange{}, fmt.Errorf("mark order used: %w", err)
		}
	}

	p, err := s.products.LockForUpdate(ctx, in.ProductID)
	if err != nil {
		return nil, events.StockChange{}, err
	}

	entry := &domain.Entry{
		ProductID:  p.ID,
		OrderID:    in.OrderID,
		SupplierID: in.SupplierID,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
		Total:      domain.ComputeTotal(in.Quantity, in.UnitPrice),
		CreatedBy:  actor.FromContextOrSystem(ctx).UserID(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, events.StockChange{}, err
	}
	entry.ProductName = p.Name

	after := p.Stock + in.Quantity
	if err := s.products.SetStock(ctx, p.ID, after); err != nil {
		return nil, events.StockChange{}, err
	}

	desc := fmt.Sprintf("entry of %d units of %s (stock %d -> %d)", in.Quantity, p.Name, p.Stock, after)
	if err := s.audit.RecordCreate(ctx, domain.ModelEntry, entry.ID, desc); err != nil {
		return nil, events.StockChange{}, err
	}

	if in.SupplierID != nil && in.UnitPrice.IsPositive() {
		if _, _, err := s.prices.Record(ctx, p.ID, *in.SupplierID, in.UnitPrice); err != nil {
			return nil, events.StockChange{}, err
		}
	}

	s.logger.Info().
		Str("product_id", p.ID).
		Str("entry_id", entry.ID).
		Int("quantity", in.Quantity).
		Int("stock", after).
		Msg("entry applied")

	return entry, events.StockChange{ProductID: p.ID, Before: p.Stock, After: after, Cause: CauseEntry, RecordID: entry.ID}, nil
}

// ApplyExit records an exit and decrements stock. The product is
// re-evaluated for low stock after commit.
func (s *StockService) ApplyExit(ctx context.Context, in ExitInput) (*domain.Exit, error) {
	if in.Quantity <= 0 {
		return nil, errors.ValidationField("quantity", "must be greater than zero")
	}
	if !domain.IsValidExitReason(in.Reason) {
		return nil, errors.ValidationField("reason", "must be one of loss, internal_use, return_to_supplier, manual_adjustment")
	}

	var (
		exit   *domain.Exit
		change events.StockChange
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.products.LockForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if in.Quantity > p.Stock {
			return errors.InsufficientStock(in.Quantity, p.Stock)
		}

		responsible := in.ResponsibleID
		if responsible == nil {
			responsible = actor.FromContextOrSystem(ctx).UserID()
		}
		exit = &domain.Exit{
			ProductID:     p.ID,
			Quantity:      in.Quantity,
			Reason:        in.Reason,
			ResponsibleID: responsible,
			Note:          in.Note,
		}
		if err := s.exits.Create(ctx, exit); err != nil {
			return err
		}
		exit.ProductName = p.Name

		after := p.Stock - in.Quantity
		if err := s.products.SetStock(ctx, p.ID, after); err != nil {
			return err
		}

		desc := fmt.Sprintf("exit of %d units of %s, reason %s (stock %d -> %d)", in.Quantity, p.Name, in.Reason, p.Stock, after)
		if err := s.audit.RecordCreate(ctx, domain.ModelExit, exit.ID, desc); err != nil {
			return err
		}

		change = events.StockChange{ProductID: p.ID, Before: p.Stock, After: after, Cause: CauseExit, RecordID: exit.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", in.ProductID).
		Str("exit_id", exit.ID).
		Int("quantity", in.Quantity).
		Int("stock", change.After).
		Msg("exit applied")

	s.afterStockChange(ctx, change)
	return exit, nil
}

// ApplyPhysicalCount records a count and its difference against the
// current stock. Stock itself is left untouched until ReconcileStock.
func (s *StockService) ApplyPhysicalCount(ctx context.Context, productID string, stockReal int, responsibleID *string) (*domain.PhysicalCount, error) {
	if stockReal < 0 {
		return nil, errors.ValidationField("stock_real", "must not be negative")
	}

	var count *domain.PhysicalCount
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.products.LockForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		if responsibleID == nil {
			responsibleID = actor.FromContextOrSystem(ctx).UserID()
		}
		count = &domain.PhysicalCount{
			ProductID:     p.ID,
			StockReal:     stockReal,
			Difference:    stockReal - p.Stock,
			ResponsibleID: responsibleID,
		}
		if err := s.counts.Create(ctx, count); err != nil {
			return err
		}
		count.ProductName = p.Name

		desc := fmt.Sprintf("physical count of %s: counted %d, system %d, difference %d", p.Name, stockReal, p.Stock, count.Difference)
		return s.audit.RecordCreate(ctx, domain.ModelPhysicalCount, count.ID, desc)
	})
	if err != nil {
		return nil, err
	}

	if count.Difference != 0 {
		s.logger.Warn().
			Str("product_id", productID).
			Int("difference", count.Difference).
			Msg("physical count differs from system stock")
	}
	return count, nil
}

// ReconcileStock sets the product stock to the counted quantity
func (s *StockService) ReconcileStock(ctx context.Context, countID string) (*domain.PhysicalCount, error) {
	var (
		count  *domain.PhysicalCount
		change events.StockChange
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.counts.GetByID(ctx, countID)
		if err != nil {
			return err
		}
		if count.Reconciled {
			return errors.StateConflict("physical count is already reconciled")
		}

		p, err := s.products.LockForUpdate(ctx, count.ProductID)
		if err != nil {
			return err
		}
		if err := s.products.SetStock(ctx, p.ID, count.StockReal); err != nil {
			return err
		}
		if err := s.counts.MarkReconciled(ctx, count.ID); err != nil {
			return err
		}
		count.Reconciled = true
		count.ProductName = p.Name

		desc := fmt.Sprintf("stock of %s reconciled from %d to %d by count %s", p.Name, p.Stock, count.StockReal, count.ID)
		if err := s.audit.RecordUpdate(ctx, domain.ModelProduct, p.ID, desc); err != nil {
			return err
		}

		change = events.StockChange{ProductID: p.ID, Before: p.Stock, After: count.StockReal, Cause: CauseReconciliation, RecordID: count.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, change)
	return count, nil
}

// UpdateEntry changes a manual entry and applies the quantity delta to
// stock. Order-linked entries are immutable.
func (s *StockService) UpdateEntry(ctx context.Context, id string, in EntryUpdate) (*domain.Entry, error) {
	var (
		entry  *domain.Entry
		change events.StockChange
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.entries.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if entry.IsOrderLinked() {
			return errors.StateConflict("an entry generated by an order cannot be modified")
		}

		quantity := entry.Quantity
		if in.Quantity != nil {
			if *in.Quantity <= 0 {
				return errors.ValidationField("quantity", "must be greater than zero")
			}
			quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			if in.UnitPrice.IsNegative() {
				return errors.ValidationField("unit_price", "must not be negative")
			}
			entry.UnitPrice = *in.UnitPrice
		}

		p, err := s.products.LockForUpdate(ctx, entry.ProductID)
		if err != nil {
			return err
		}
		delta := quantity - entry.Quantity
		after := p.Stock + delta
		if after < 0 {
			return errors.InsufficientStock(-delta, p.Stock)
		}

		entry.Quantity = quantity
		entry.Total = domain.ComputeTotal(quantity, entry.UnitPrice)
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		if delta != 0 {
			if err := s.products.SetStock(ctx, p.ID, after); err != nil {
				return err
			}
		}

		desc := fmt.Sprintf("entry of %s updated to %d units (stock %d -> %d)", p.Name, quantity, p.Stock, after)
		if err := s.audit.RecordUpdate(ctx, domain.ModelEntry, entry.ID, desc); err != nil {
			return err
		}

		change = events.StockChange{ProductID: p.ID, Before: p.Stock, After: after, Cause: CauseEntryUpdate, RecordID: entry.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change.Before != change.After {
		s.afterStockChange(ctx, change)
	}
	return entry, nil
}

// DeleteEntry removes a manual entry and reverts its stock, floored at zero
func (s *StockService) DeleteEntry(ctx context.Context, id string) error {
	var change events.StockChange
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.entries.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if entry.IsOrderLinked() {
			return errors.StateConflict("an entry generated by an order cannot be deleted")
		}

		p, err := s.products.LockForUpdate(ctx, entry.ProductID)
		if err != nil {
			return err
		}
		after := max(0, p.Stock-entry.Quantity)
		if err := s.products.SetStock(ctx, p.ID, after); err != nil {
			return err
		}
		if err := s.entries.Delete(ctx, entry.ID); err != nil {
			return err
		}

		desc := fmt.Sprintf("entry of %d units of %s deleted (stock %d -> %d)", entry.Quantity, p.Name, p.Stock, after)
		if err := s.audit.RecordDelete(ctx, domain.ModelEntry, entry.ID, desc); err != nil {
			return err
		}

		change = events.StockChange{ProductID: p.ID, Before: p.Stock, After: after, Cause: CauseEntryDeleted, RecordID: entry.ID}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterStockChange(ctx, change)
	return nil
}

// DeleteExit removes an exit and restores its stock
func (s *StockService) DeleteExit(ctx context.Context, id string) error {
	var change events.StockChange
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		exit, err := s.exits.GetByID(ctx, id)
		if err != nil {
			return err
		}

		p, err := s.products.LockForUpdate(ctx, exit.ProductID)
		if err != nil {
			return err
		}
		after := p.Stock + exit.Quantity
		if err := s.products.SetStock(ctx, p.ID, after); err != nil {
			return err
		}
		if err := s.exits.Delete(ctx, exit.ID); err != nil {
			return err
		}

		desc := fmt.Sprintf("exit of %d units of %s deleted (stock %d -> %d)", exit.Quantity, p.Name, p.Stock, after)
		if err := s.audit.RecordDelete(ctx, domain.ModelExit, exit.ID, desc); err != nil {
			return err
		}

		change = events.StockChange{ProductID: p.ID, Before: p.Stock, After: after, Cause: CauseExitDeleted, RecordID: exit.ID}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterStockChange(ctx, change)
	return nil
}

// UpdateExit always fails: exits are corrected by deleting and recording again
func (s *StockService) UpdateExit(context.Context, string) error {
	return errors.StateConflict("exits cannot be modified; delete the exit and record a new one")
}

// AverageDailyConsumption is the total exited over the last days divided
// by days, rounded to two decimals
func (s *StockService) AverageDailyConsumption(ctx context.Context, productID string, days int) (decimal.Decimal, error) {
	if days <= 0 {
		days = DefaultConsumptionWindow
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return decimal.Zero, err
	}

	since := s.now().AddDate(0, 0, -days)
	total, err := s.exits.SumSince(ctx, productID, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum exits: %w", err)
	}
	return decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(days))).Round(2), nil
}

// afterStockChange publishes the committed change and re-evaluates the
// product. Failures are logged only.
func (s *StockService) afterStockChange(ctx context.Context, change events.StockChange) {
	s.publisher.PublishStockChanged(ctx, change)

	if s.evaluator == nil || change.After >= change.Before {
		return
	}
	if _, _, err := s.evaluator.EvaluateProduct(ctx, change.ProductID); err != nil {
		s.logger.Error().Err(err).Str("product_id", change.ProductID).Msg("low stock evaluation failed")
	}
}

// GetEntry returns a single entry
func (s *StockService) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	return s.entries.GetByID(ctx, id)
}

// ListEntries lists entries, newest first
func (s *StockService) ListEntries(ctx context.Context, f repository.StockFilter, page repository.Page) ([]*domain.Entry, int64, error) {
	return s.entries.List(ctx, f, page)
}

// GetExit returns a single exit
func (s *StockService) GetExit(ctx context.Context, id string) (*domain.Exit, error) {
	return s.exits.GetByID(ctx, id)
}

// ListExits lists exits, newest first
func (s *StockService) ListExits(ctx context.Context, f repository.StockFilter, page repository.Page) ([]*domain.Exit, int64, error) {
	return s.exits.List(ctx, f, page)
}

// GetPhysicalCount returns a single physical count
func (s *StockService) GetPhysicalCount(ctx context.Context, id string) (*domain.PhysicalCount, error) {
	return s.counts.GetByID(ctx, id)
}

// ListPhysicalCounts lists physical counts, newest first
func (s *StockService) ListPhysicalCounts(ctx context.Context, f repository.StockFilter, page repository.Page) ([]*domain.PhysicalCount, int64, error) {
	return s.counts.List(ctx, f, page)
}
