// Package app assembles the inventory services over a PostgreSQL database.
package app

import (
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/handler"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/database"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/mail"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/maestranza/maestranza-backend/pkg/storage"
)

// Deps are the infrastructure the inventory services run on
type Deps struct {
	DB         *database.DB
	Publisher  messaging.EventPublisher
	Mailer     mail.Sender
	Files      storage.Store
	Recipients service.RecipientDirectory
}

// NewServices wires repositories and services. The alert service is given
// the order service as its generator before returning.
func NewServices(d Deps, log *logger.Logger) handler.Services {
	products := repository.NewProductRepository(d.DB)
	lots := repository.NewLotRepository(d.DB)
	suppliers := repository.NewSupplierRepository(d.DB)
	categories := repository.NewCategoryRepository(d.DB)
	geography := repository.NewGeographyRepository(d.DB)
	alertRepo := repository.NewAlertRepository(d.DB)
	orderRepo := repository.NewOrderRepository(d.DB)
	entries := repository.NewEntryRepository(d.DB)
	exits := repository.NewExitRepository(d.DB)
	counts := repository.NewPhysicalCountRepository(d.DB)
	quotationRepo := repository.NewQuotationRepository(d.DB)
	priceRepo := repository.NewPriceHistoryRepository(d.DB)
	kitRepo := repository.NewKitRepository(d.DB)
	auditRepo := repository.NewAuditTrailRepository(d.DB)
	notificationRepo := repository.NewNotificationRepository(d.DB)

	var publisher *events.InventoryEventPublisher
	if d.Publisher != nil {
		publisher = events.NewInventoryEventPublisher(d.Publisher, log)
	}

	audit := service.NewAuditService(auditRepo, log)
	notifications := service.NewNotificationService(notificationRepo, d.Recipients, d.Mailer, log)
	prices := service.NewPriceHistoryService(priceRepo, log)
	alerts := service.NewAlertService(d.DB, products, alertRepo, audit, notifications, publisher, log)
	stock := service.NewStockService(d.DB, products, entries, exits, counts, orderRepo, audit, prices, alerts, publisher, log)
	orders := service.NewOrderService(d.DB, orderRepo, alertRepo, products, entries, quotationRepo, stock, audit, notifications, publisher, log)
	alerts.SetOrderGenerator(orders)

	return handler.Services{
		Catalog:       service.NewCatalogService(d.DB, products, lots, suppliers, categories, geography, audit, log),
		Stock:         stock,
		Alerts:        alerts,
		Orders:        orders,
		Quotations:    service.NewQuotationService(d.DB, quotationRepo, orderRepo, products, suppliers, audit, d.Files, log),
		Prices:        prices,
		Kits:          service.NewKitService(d.DB, kitRepo, audit, log),
		Audit:         audit,
		Notifications: notifications,
	}
}
