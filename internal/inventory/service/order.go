package service

import (
	"context"
	"fmt"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// ManualOrderInput is an order raised by hand
type ManualOrderInput struct {
	ProductID  string  `json:"product_id" validate:"required"`
	SupplierID string  `json:"supplier_id" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	AlertID    *string `json:"alert_id,omitempty"`
}

// OrderItemInput adds or changes an order line
type OrderItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	AlertID   string `json:"alert_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// TransitionResult is the outcome of an order state change. Entry is set
// when completing the order generated one.
type TransitionResult struct {
	Order *domain.Order `json:"order"`
	Entry *domain.Entry `json:"entry,omitempty"`
}

// OrderService turns alerts into replenishment orders and drives the
// order state machine: pending to exactly one terminal state.
type OrderService struct {
	tx            Transactor
	orders        OrderStore
	alerts        AlertStore
	products      ProductStore
	entries       EntryStore
	quotations    QuotationStore
	stock         *StockService
	audit         *AuditService
	notifications *NotificationService
	publisher     *events.InventoryEventPublisher
	logger        *logger.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	tx Transactor,
	orders OrderStore,
	alerts AlertStore,
	products ProductStore,
	entries EntryStore,
	quotations QuotationStore,
	stock *StockService,
	audit *AuditService,
	notifications *NotificationService,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		tx:            tx,
		orders:        orders,
		alerts:        alerts,
		products:      products,
		entries:       entries,
		quotations:    quotations,
		stock:         stock,
		audit:         audit,
		notifications: notifications,
		publisher:     publisher,
		logger:        log.WithComponent("orders"),
	}
}

// CreateOrderFromAlert creates the pending order for an open, unused
// alert and links the two
func (s *OrderService) CreateOrderFromAlert(ctx context.Context, alertID string) (*domain.Order, error) {
	var (
		order   *domain.Order
		product *domain.Product
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.alerts.LockForUpdate(ctx, alertID)
		if err != nil {
			return err
		}
		if !a.IsOpen() {
			return errors.StateConflict(fmt.Sprintf("a %s alert cannot generate an order", a.State))
		}
		if a.UsedForOrder || a.OrderID != nil {
			return errors.StateConflict("alert already generated an order")
		}

		product, err = s.products.GetByID(ctx, a.ProductID)
		if err != nil {
			return err
		}
		if product.SupplierID == nil {
			return errors.ValidationField("supplier_id", "the product's lot has no supplier")
		}

		quantity := 2 * product.StockMinimum
		if a.SuggestedStock != nil {
			quantity = *a.SuggestedStock
		}
		// an entry needs at least one unit, even for a zero minimum
		quantity = max(quantity, 1)

		order = &domain.Order{
			ProductID:       product.ID,
			SupplierID:      *product.SupplierID,
			AlertID:         &a.ID,
			QuantityOrdered: quantity,
			State:           domain.OrderPending,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		order.ProductName = product.Name
		order.SKU = product.SKU
		if product.SupplierName != nil {
			order.SupplierName = *product.SupplierName
		}

		a.UsedForOrder = true
		a.OrderID = &order.ID
		if err := s.alerts.Update(ctx, a); err != nil {
			return err
		}

		desc := fmt.Sprintf("order for %d units of %s generated from alert %s", quantity, product.Name, a.ID)
		return s.audit.RecordCreate(ctx, domain.ModelOrder, order.ID, desc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("alert_id", alertID).
		Str("order_id", order.ID).
		Str("product_id", order.ProductID).
		Int("quantity", order.QuantityOrdered).
		Msg("order generated from alert")

	message := fmt.Sprintf("New replenishment order for %s: %d units", product.Name, order.QuantityOrdered)
	if _, err := s.notifications.NotifyRoles(ctx, message, permissions.RoleAdmin, permissions.RoleInventario); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to notify order creation")
	}
	s.publisher.PublishOrderCreated(ctx, order)
	return order, nil
}

// GenerateEntryIfOrderCompleted books the stock entry of a completed
// order and archives its originating alert. It returns nil without error
// when the order is not completed or already has its entry.
func (s *OrderService) GenerateEntryIfOrderCompleted(ctx context.Context, orderID string) (*domain.Entry, error) {
	var (
		entry  *domain.Entry
		change events.StockChange
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		entry, change, err = s.generateEntry(ctx, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		s.publisher.PublishStockChanged(ctx, change)
	}
	return entry, nil
}

// generateEntry runs inside the caller's transaction
func (s *OrderService) generateEntry(ctx context.Context, order *domain.Order) (*domain.Entry, events.StockChange, error) {
	if order.State != domain.OrderCompleted || order.UsedForEntry {
		return nil, events.StockChange{}, nil
	}
	exists, err := s.entries.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, events.StockChange{}, fmt.Errorf("check order entry: %w", err)
	}
	if exists {
		return nil, events.StockChange{}, nil
	}

	product, err := s.products.GetByID(ctx, order.ProductID)
	if err != nil {
		return nil, events.StockChange{}, err
	}

	supplierID := order.SupplierID
	orderID := order.ID
	entry, change, err := s.stock.applyEntry(ctx, EntryInput{
		ProductID:  order.ProductID,
		Quantity:   order.QuantityOrdered,
		SupplierID: &supplierID,
		OrderID:    &orderID,
		UnitPrice:  product.Price,
	})
	if err != nil {
		return nil, events.StockChange{}, err
	}

	if err := s.closeAlert(ctx, order, domain.AlertArchived, "alert archived after order "+order.ID+" was received"); err != nil {
		return nil, events.StockChange{}, err
	}

	s.logger.Info().Str("order_id", order.ID).Str("entry_id", entry.ID).Msg("entry generated from completed order")
	return entry, change, nil
}

// CreateQuotationsForSupplier returns the order's quotation, creating it
// on first call. The bool reports whether it was created.
func (s *OrderService) CreateQuotationsForSupplier(ctx context.Context, orderID string) (*domain.Quotation, bool, error) {
	var (
		quotation *domain.Quotation
		created   bool
		product   *domain.Product
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.LockForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return errors.StateConflict("quotations can only be requested for a pending order")
		}

		existing, err := s.quotations.GetByOrder(ctx, order.ID)
		switch {
		case err == nil:
			quotation = existing
			return nil
		case !errors.Is(err, errors.ErrNotFound):
			return err
		}

		product, err = s.products.GetByID(ctx, order.ProductID)
		if err != nil {
			return err
		}
		quotation = &domain.Quotation{
			OrderID:    order.ID,
			SupplierID: order.SupplierID,
			State:      domain.QuotationPending,
			UnitPrice:  product.Price,
			Amount:     domain.ComputeTotal(max(order.QuantityOrdered, 1), product.Price),
		}
		if err := s.quotations.Create(ctx, quotation); err != nil {
			return err
		}
		created = true

		desc := fmt.Sprintf("quotation requested for order %s", order.ID)
		return s.audit.RecordCreate(ctx, domain.ModelQuotation, quotation.ID, desc)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		message := fmt.Sprintf("Quotation requested for %s (order %s)", product.Name, orderID)
		if _, err := s.notifications.NotifyRoles(ctx, message, permissions.RoleComprador); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to notify quotation request")
		}
		s.publisher.PublishQuotationRequested(ctx, quotation)
	}
	return quotation, created, nil
}

// Transition moves a pending order to a terminal state. Completing an
// order generates its stock entry in the same transaction. Any other
// terminal state closes the source alert as inactive.
func (s *OrderService) Transition(ctx context.Context, orderID, newState string) (*TransitionResult, error) {
	if !domain.IsValidOrderState(newState) {
		return nil, errors.ValidationField("state", "unknown order state")
	}

	var (
		result = &TransitionResult{}
		change events.StockChange
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.LockForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(order.State, newState) {
			return errors.StateConflict(fmt.Sprintf("order cannot move from %s to %s", order.State, newState))
		}

		from := order.State
		order.State = newState
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		if err := s.audit.RecordUpdate(ctx, domain.ModelOrder, order.ID, fmt.Sprintf("order state %s -> %s", from, newState)); err != nil {
			return err
		}
		result.Order = order

		if newState != domain.OrderCompleted {
			return s.closeAlert(ctx, order, domain.AlertInactive, fmt.Sprintf("alert closed after order %s was %s", order.ID, newState))
		}
		result.Entry, change, err = s.generateEntry(ctx, order)
		if err != nil {
			return err
		}
		order.UsedForEntry = result.Entry != nil || order.UsedForEntry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", orderID).Str("state", newState).Msg("order state changed")
	if result.Entry != nil {
		s.publisher.PublishStockChanged(ctx, change)
	}
	return result, nil
}

// Delete logically deletes an order
func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.LockForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		switch {
		case order.State == domain.OrderCompleted, order.UsedForEntry:
			return errors.StateConflict("a completed order cannot be deleted")
		case order.State == domain.OrderDeleted:
			return nil
		}

		order.State = domain.OrderDeleted
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		if err := s.audit.RecordDelete(ctx, domain.ModelOrder, order.ID, "order deleted"); err != nil {
			return err
		}
		return s.closeAlert(ctx, order, domain.AlertInactive, "alert closed after order "+order.ID+" was deleted")
	})
}

// closeAlert takes the order's source alert out of the open set so the
// product can raise a new one. Alerts already closed are left alone.
func (s *OrderService) closeAlert(ctx context.Context, order *domain.Order, state, desc string) error {
	if order.AlertID == nil {
		return nil
	}
	a, err := s.alerts.LockForUpdate(ctx, *order.AlertID)
	if err != nil {
		return err
	}
	if !a.IsOpen() {
		return nil
	}
	a.State = state
	if err := s.alerts.Update(ctx, a); err != nil {
		return err
	}
	return s.audit.RecordUpdate(ctx, domain.ModelAlert, a.ID, desc)
}

// CreateManual creates an order by hand. The supplier must be the one of
// the product's lot, and an out of stock product needs an open alert.
func (s *OrderService) CreateManual(ctx context.Context, in ManualOrderInput) (*domain.Order, error) {
	if in.Quantity <= 0 {
		return nil, errors.ValidationField("quantity", "must be greater than zero")
	}

	var order *domain.Order
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product.SupplierID == nil || *product.SupplierID != in.SupplierID {
			return errors.ValidationField("supplier_id", "must match the supplier of the product's lot")
		}
		if product.Stock <= 0 && in.AlertID == nil {
			return errors.ValidationField("alert_id", "required when the product is out of stock")
		}

		order = &domain.Order{
			ProductID:       product.ID,
			SupplierID:      in.SupplierID,
			QuantityOrdered: in.Quantity,
			State:           domain.OrderPending,
		}

		var alert *domain.Alert
		if in.AlertID != nil {
			alert, err = s.alerts.LockForUpdate(ctx, *in.AlertID)
			if err != nil {
				return err
			}
			if alert.ProductID != product.ID {
				return errors.ValidationField("alert_id", "alert belongs to a different product")
			}
			if !alert.CanSpawnOrder() {
				return errors.StateConflict("alert cannot generate an order")
			}
			order.AlertID = &alert.ID
		}

		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		order.ProductName = product.Name
		order.SKU = product.SKU
		if product.SupplierName != nil {
			order.SupplierName = *product.SupplierName
		}

		if alert != nil {
			alert.UsedForOrder = true
			alert.OrderID = &order.ID
			if err := s.alerts.Update(ctx, alert); err != nil {
				return err
			}
		}

		desc := fmt.Sprintf("manual order for %d units of %s", in.Quantity, product.Name)
		return s.audit.RecordCreate(ctx, domain.ModelOrder, order.ID, desc)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderCreated(ctx, order)
	return order, nil
}

// Get returns a single order
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List lists orders, newest first
func (s *OrderService) List(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]*domain.Order, int64, error) {
	if f.State != "" && !domain.IsValidOrderState(f.State) {
		return nil, 0, errors.ValidationField("state", "unknown order state")
	}
	return s.orders.List(ctx, f, page)
}

// AddItem adds a line to a pending order
func (s *OrderService) AddItem(ctx context.Context, orderID string, in OrderItemInput) (*domain.OrderItem, error) {
	var item *domain.OrderItem
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockPending(ctx, orderID); err != nil {
			return err
		}
		if err := s.checkItem(ctx, in); err != nil {
			return err
		}

		item = &domain.OrderItem{
			OrderID:   orderID,
			ProductID: in.ProductID,
			AlertID:   in.AlertID,
			Quantity:  in.Quantity,
		}
		if err := s.orders.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.audit.RecordCreate(ctx, domain.ModelOrderItem, item.ID, fmt.Sprintf("item of %d units added to order %s", in.Quantity, orderID))
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem changes a line of a pending order
func (s *OrderService) UpdateItem(ctx context.Context, itemID string, in OrderItemInput) (*domain.OrderItem, error) {
	var item *domain.OrderItem
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.orders.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.lockPending(ctx, item.OrderID); err != nil {
			return err
		}
		if err := s.checkItem(ctx, in); err != nil {
			return err
		}

		item.ProductID = in.ProductID
		item.AlertID = in.AlertID
		item.Quantity = in.Quantity
		if err := s.orders.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelOrderItem, item.ID, fmt.Sprintf("item of order %s set to %d units", item.OrderID, in.Quantity))
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem removes a line from a pending order
func (s *OrderService) RemoveItem(ctx context.Context, itemID string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		item, err := s.orders.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.lockPending(ctx, item.OrderID); err != nil {
			return err
		}
		if err := s.orders.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelOrderItem, item.ID, "item removed from order "+item.OrderID)
	})
}

// ListItems lists the lines of an order
func (s *OrderService) ListItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.ListItems(ctx, orderID)
}

func (s *OrderService) lockPending(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.LockForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() {
		return nil, errors.StateConflict("items can only change while the order is pending")
	}
	return order, nil
}

func (s *OrderService) checkItem(ctx context.Context, in OrderItemInput) error {
	if in.Quantity <= 0 {
		return errors.ValidationField("quantity", "must be greater than zero")
	}
	a, err := s.alerts.GetByID(ctx, in.AlertID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.ValidationField("alert_id", "alert does not exist")
		}
		return err
	}
	if a.ProductID != in.ProductID {
		return errors.ValidationField("alert_id", "alert belongs to a different product")
	}
	if !a.IsOpen() {
		return errors.StateConflict("the item's alert must be active or pending")
	}
	return nil
}
