package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// Services groups the inventory services exposed over HTTP
type Services struct {
	Catalog       *service.CatalogService
	Stock         *service.StockService
	Alerts        *service.AlertService
	Orders        *service.OrderService
	Quotations    *service.QuotationService
	Prices        *service.PriceHistoryService
	Kits          *service.KitService
	Audit         *service.AuditService
	Notifications *service.NotificationService
}

// Register mounts every inventory resource on r. The caller is expected
// to have authenticated the request already.
func Register(r chi.Router, svc Services, log *logger.Logger) {
	catalog := NewCatalogHandler(svc.Catalog, svc.Stock, log)
	stock := NewStockHandler(svc.Stock, log)
	alerts := NewAlertHandler(svc.Alerts, log)
	orders := NewOrderHandler(svc.Orders, log)
	quotations := NewQuotationHandler(svc.Quotations, svc.Prices, log)
	kits := NewKitHandler(svc.Kits, log)
	audit := NewAuditHandler(svc.Audit, log)
	notifications := NewNotificationHandler(svc.Notifications, log)

	r.Route("/products", catalog.ProductRoutes)
	r.Route("/lots", catalog.LotRoutes)
	r.Route("/suppliers", catalog.SupplierRoutes)
	r.Route("/categories", catalog.CategoryRoutes)
	r.Get("/comunas", catalog.ListComunas)
	r.Route("/entries", stock.EntryRoutes)
	r.Route("/exits", stock.ExitRoutes)
	r.Route("/physical-counts", stock.CountRoutes)
	r.Route("/alerts", alerts.Routes)
	r.Route("/orders", orders.Routes)
	r.Route("/quotations", quotations.Routes)
	r.Route("/price-history", quotations.PriceRoutes)
	r.Route("/kits", kits.Routes)
	r.Route("/audit", audit.Routes)
	r.Route("/notifications", notifications.Routes)
}

// can wraps RequirePermission for route declarations
func can(action, resource string) func(http.Handler) http.Handler {
	return httputil.RequirePermission(action, resource)
}

// crud mounts the usual list/create/get/update/delete set for a resource
func crud(r chi.Router, resource string, list, create, get, update, del http.HandlerFunc) {
	r.With(can(permissions.ActionRead, resource)).Get("/", list)
	r.With(can(permissions.ActionCreate, resource)).Post("/", create)
	r.With(can(permissions.ActionRead, resource)).Get("/{id}", get)
	if update != nil {
		r.With(can(permissions.ActionUpdate, resource)).Put("/{id}", update)
		r.With(can(permissions.ActionUpdate, resource)).Patch("/{id}", update)
	}
	r.With(can(permissions.ActionDelete, resource)).Delete("/{id}", del)
}

func pageOf(r *http.Request) (repository.Page, int, int) {
	page, perPage := httputil.Pagination(r)
	return repository.Page{Page: page, PerPage: perPage}, page, perPage
}

func respond(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, v)
}

func respondCreated(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, v)
}

func respondDeleted(w http.ResponseWriter, err error) {
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// queryDate parses an optional YYYY-MM-DD or RFC 3339 query parameter
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errors.BadRequest("invalid " + name + " date: " + raw)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequest("invalid " + name + ": " + raw)
	}
	return n, nil
}
