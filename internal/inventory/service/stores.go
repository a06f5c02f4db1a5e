// Package service holds the inventory business logic: stock mutation,
// alert evaluation, order generation, quotations, kits, audit and
// notifications. Services depend on the store interfaces below, which
// the repository package satisfies.
package service

import (
	"context"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
)

// Transactor runs fn inside a transaction carried by ctx. Nested calls
// join the outer transaction. *database.DB satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductStore persists products
type ProductStore interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByCode(ctx context.Context, code string) (*domain.Product, error)
	LockForUpdate(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*domain.Product, int64, error)
	ListEnabled(ctx context.Context) ([]*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	SetStock(ctx context.Context, id string, stock int) error
	Delete(ctx context.Context, id string) error
}

// LotStore persists lots
type LotStore interface {
	Create(ctx context.Context, l *domain.Lot) error
	GetByID(ctx context.Context, id string) (*domain.Lot, error)
	List(ctx context.Context, supplierID string, page repository.Page) ([]*domain.Lot, int64, error)
	Update(ctx context.Context, l *domain.Lot) error
	Delete(ctx context.Context, id string) error
	CountProducts(ctx context.Context, id string) (int, error)
}

// SupplierStore persists suppliers
type SupplierStore interface {
	Create(ctx context.Context, s *domain.Supplier) error
	GetByID(ctx context.Context, id string) (*domain.Supplier, error)
	List(ctx context.Context, search string, page repository.Page) ([]*domain.Supplier, int64, error)
	Update(ctx context.Context, s *domain.Supplier) error
	Delete(ctx context.Context, id string) error
	CountReferences(ctx context.Context, id string) (int, error)
}

// CategoryStore persists categories
type CategoryStore interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context, page repository.Page) ([]*domain.Category, int64, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
	CountLots(ctx context.Context, id string) (int, error)
}

// GeographyStore reads the comuna reference table
type GeographyStore interface {
	ListComunas(ctx context.Context) ([]*domain.Comuna, error)
}

// AlertStore persists stock alerts
type AlertStore interface {
	Create(ctx context.Context, a *domain.Alert) error
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	LockForUpdate(ctx context.Context, id string) (*domain.Alert, error)
	HasOpen(ctx context.Context, productID string) (bool, error)
	List(ctx context.Context, f repository.AlertFilter, page repository.Page) ([]*domain.Alert, int64, error)
	ListUnprocessed(ctx context.Context) ([]*domain.Alert, error)
	ListStale(ctx context.Context, before time.Time) ([]*domain.Alert, error)
	Update(ctx context.Context, a *domain.Alert) error
	Delete(ctx context.Context, id string) error
}

// OrderStore persists orders and their items
type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	LockForUpdate(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]*domain.Order, int64, error)
	Update(ctx context.Context, o *domain.Order) error
	CreateItem(ctx context.Context, item *domain.OrderItem) error
	GetItem(ctx context.Context, id string) (*domain.OrderItem, error)
	ListItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error)
	UpdateItem(ctx context.Context, item *domain.OrderItem) error
	DeleteItem(ctx context.Context, id string) error
}

// EntryStore persists stock entries
type EntryStore interface {
	Create(ctx context.Context, e *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	List(ctx context.Context, f repository.StockFilter, page repository.Page) ([]*domain.Entry, int64, error)
	Update(ctx context.Context, e *domain.Entry) error
	Delete(ctx context.Context, id string) error
}

// ExitStore persists stock exits
type ExitStore interface {
	Create(ctx context.Context, x *domain.Exit) error
	GetByID(ctx context.Context, id string) (*domain.Exit, error)
	List(ctx context.Context, f repository.StockFilter, page repository.Page) ([]*domain.Exit, int64, error)
	SumSince(ctx context.Context, productID string, since time.Time) (int, error)
	Delete(ctx context.Context, id string) error
}

// PhysicalCountStore persists physical counts
type PhysicalCountStore interface {
	Create(ctx context.Context, c *domain.PhysicalCount) error
	GetByID(ctx context.Context, id string) (*domain.PhysicalCount, error)
	List(ctx context.Context, f repository.StockFilter, page repository.Page) ([]*domain.PhysicalCount, int64, error)
	MarkReconciled(ctx context.Context, id string) error
}

// QuotationStore persists supplier quotations
type QuotationStore interface {
	Create(ctx context.Context, q *domain.Quotation) error
	GetByID(ctx context.Context, id string) (*domain.Quotation, error)
	LockForUpdate(ctx context.Context, id string) (*domain.Quotation, error)
	GetByOrder(ctx context.Context, orderID string) (*domain.Quotation, error)
	List(ctx context.Context, f repository.QuotationFilter, page repository.Page) ([]*domain.Quotation, int64, error)
	Update(ctx context.Context, q *domain.Quotation) error
	Delete(ctx context.Context, id string) error
}

// PriceHistoryStore persists the append-only price log
type PriceHistoryStore interface {
	Create(ctx context.Context, h *domain.PriceHistory) error
	Latest(ctx context.Context, productID, supplierID string) (*domain.PriceHistory, error)
	List(ctx context.Context, f repository.PriceHistoryFilter, page repository.Page) ([]*domain.PriceHistory, int64, error)
}

// KitStore persists kits and their items
type KitStore interface {
	Create(ctx context.Context, k *domain.Kit) error
	GetByID(ctx context.Context, id string) (*domain.Kit, error)
	List(ctx context.Context, page repository.Page) ([]*domain.Kit, int64, error)
	Delete(ctx context.Context, id string) error
	CreateItem(ctx context.Context, item *domain.KitItem) error
	GetItem(ctx context.Context, id string) (*domain.KitItem, error)
	ListItems(ctx context.Context, kitID string) ([]*domain.KitItem, error)
	UpdateItem(ctx context.Context, item *domain.KitItem) error
	DeleteItem(ctx context.Context, id string) error
}

// AuditStore persists audit rows
type AuditStore interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	GetByID(ctx context.Context, id string) (*domain.AuditEntry, error)
	List(ctx context.Context, f repository.AuditFilter, page repository.Page) ([]*domain.AuditEntry, int64, error)
}

// NotificationStore persists in-app notifications
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, page repository.Page) ([]*domain.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
}

// RecipientDirectory resolves roles to active user ids
type RecipientDirectory interface {
	IDsByRoles(ctx context.Context, roles ...string) ([]string, error)
}

// OrderGenerator creates the replenishment order for an open alert
type OrderGenerator interface {
	CreateOrderFromAlert(ctx context.Context, alertID string) (*domain.Order, error)
}

// StockEvaluator checks one product for low stock
type StockEvaluator interface {
	EvaluateProduct(ctx context.Context, productID string) (*domain.Alert, bool, error)
}
