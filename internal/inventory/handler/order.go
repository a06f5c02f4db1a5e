package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// OrderHandler handles replenishment order endpoints
type OrderHandler struct {
	orders *service.OrderService
	logger *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: log,
	}
}

// Routes mounts /orders
func (h *OrderHandler) Routes(r chi.Router) {
	read := can(permissions.ActionRead, permissions.ResourceOrders)
	update := can(permissions.ActionUpdate, permissions.ResourceOrders)

	r.With(read).Get("/", h.List)
	r.With(can(permissions.ActionCreate, permissions.ResourceOrders)).Post("/", h.Create)
	r.With(update).Put("/items/{itemID}", h.UpdateItem)
	r.With(update).Delete("/items/{itemID}", h.RemoveItem)
	r.With(read).Get("/{id}", h.Get)
	r.With(can(permissions.ActionDelete, permissions.ResourceOrders)).Delete("/{id}", h.Delete)
	r.With(update).Patch("/{id}/state", h.Transition)
	r.With(can(permissions.ActionCreate, permissions.ResourceEntries)).Post("/{id}/entry", h.GenerateEntry)
	r.With(can(permissions.ActionCreate, permissions.ResourceQuotations)).Post("/{id}/quotation", h.RequestQuotation)
	r.With(read).Get("/{id}/items", h.ListItems)
	r.With(update).Post("/{id}/items", h.AddItem)
}

// List lists orders. Supports state and product_id.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)
	f := repository.OrderFilter{
		State:     r.URL.Query().Get("state"),
		ProductID: r.URL.Query().Get("product_id"),
	}

	orders, total, err := h.orders.List(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, orders, httputil.NewMeta(page, perPage, total))
}

// Create raises an order by hand
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ManualOrderInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.orders.CreateManual(r.Context(), req)
	respondCreated(w, order, err)
}

// Get gets an order by ID
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, order, err)
}

// Delete deletes an order that has no entry
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.orders.Delete(r.Context(), chi.URLParam(r, "id")))
}

type transitionRequest struct {
	State string `json:"state" validate:"required"`
}

// Transition moves a pending order to a terminal state
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.orders.Transition(r.Context(), chi.URLParam(r, "id"), req.State)
	respond(w, result, err)
}

type generatedEntry struct {
	Generated bool          `json:"generated"`
	Entry     *domain.Entry `json:"entry,omitempty"`
}

// GenerateEntry creates the entry of a completed order. Calling it again,
// or on an order that is not completed, generates nothing.
func (h *OrderHandler) GenerateEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.orders.GenerateEntryIfOrderCompleted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if entry == nil {
		httputil.JSON(w, http.StatusOK, generatedEntry{})
		return
	}

	httputil.Created(w, generatedEntry{Generated: true, Entry: entry})
}

// RequestQuotation opens the quotation for the order's supplier, once
func (h *OrderHandler) RequestQuotation(w http.ResponseWriter, r *http.Request) {
	quotation, created, err := h.orders.CreateQuotationsForSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if created {
		httputil.Created(w, quotation)
		return
	}

	httputil.JSON(w, http.StatusOK, quotation)
}

// ListItems lists the lines of an order
func (h *OrderHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.ListItems(r.Context(), chi.URLParam(r, "id"))
	respond(w, items, err)
}

// AddItem adds a line to a pending order
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.OrderItemInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.orders.AddItem(r.Context(), chi.URLParam(r, "id"), req)
	respondCreated(w, item, err)
}

// UpdateItem changes an order line
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req service.OrderItemInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.orders.UpdateItem(r.Context(), chi.URLParam(r, "itemID"), req)
	respond(w, item, err)
}

// RemoveItem removes an order line
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.orders.RemoveItem(r.Context(), chi.URLParam(r, "itemID")))
}
