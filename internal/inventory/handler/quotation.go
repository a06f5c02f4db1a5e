package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// QuotationHandler handles quotation and price history endpoints
type QuotationHandler struct {
	quotations *service.QuotationService
	prices     *service.PriceHistoryService
	logger     *logger.Logger
}

// NewQuotationHandler creates a new quotation handler
func NewQuotationHandler(quotations *service.QuotationService, prices *service.PriceHistoryService, log *logger.Logger) *QuotationHandler {
	return &QuotationHandler{
		quotations: quotations,
		prices:     prices,
		logger:     log,
	}
}

// Routes mounts /quotations
func (h *QuotationHandler) Routes(r chi.Router) {
	crud(r, permissions.ResourceQuotations, h.List, h.Create, h.Get, h.Update, h.Delete)
	update := can(permissions.ActionUpdate, permissions.ResourceQuotations)
	r.With(update).Post("/{id}/pdf", h.RenderPDF)
	r.With(update).Post("/{id}/accept", h.Accept)
	r.With(update).Post("/{id}/reject", h.Reject)
}

// PriceRoutes mounts /price-history
func (h *QuotationHandler) PriceRoutes(r chi.Router) {
	r.With(can(permissions.ActionRead, permissions.ResourcePriceHistory)).Get("/", h.ListPrices)
	r.With(can(permissions.ActionCreate, permissions.ResourcePriceHistory)).Post("/", h.RecordPrice)
}

// List lists quotations. Supports state, order_id and supplier_id.
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)
	q := r.URL.Query()
	f := repository.QuotationFilter{
		State:      q.Get("state"),
		OrderID:    q.Get("order_id"),
		SupplierID: q.Get("supplier_id"),
	}

	quotations, total, err := h.quotations.List(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, quotations, httputil.NewMeta(page, perPage, total))
}

// Create records a supplier quotation for a pending order
func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.QuotationInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	quotation, err := h.quotations.Create(r.Context(), req)
	respondCreated(w, quotation, err)
}

// Get gets a quotation by ID
func (h *QuotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, quotation, err)
}

// Update changes the figures of a pending quotation
func (h *QuotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.QuotationUpdate
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	quotation, err := h.quotations.Update(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, quotation, err)
}

// Delete deletes a pending quotation
func (h *QuotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.quotations.Delete(r.Context(), chi.URLParam(r, "id")))
}

// RenderPDF renders the quotation request document and stores its URL
func (h *QuotationHandler) RenderPDF(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.RenderRequestPDF(r.Context(), chi.URLParam(r, "id"))
	respond(w, quotation, err)
}

// Accept accepts a pending quotation
func (h *QuotationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.Accept(r.Context(), chi.URLParam(r, "id"))
	respond(w, quotation, err)
}

// Reject rejects a pending quotation
func (h *QuotationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.Reject(r.Context(), chi.URLParam(r, "id"))
	respond(w, quotation, err)
}

// ListPrices lists price history. Supports product_id and supplier_id.
func (h *QuotationHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)
	f := repository.PriceHistoryFilter{
		ProductID:  r.URL.Query().Get("product_id"),
		SupplierID: r.URL.Query().Get("supplier_id"),
	}

	prices, total, err := h.prices.List(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, prices, httputil.NewMeta(page, perPage, total))
}

type priceRequest struct {
	ProductID  string          `json:"product_id" validate:"required"`
	SupplierID string          `json:"supplier_id" validate:"required"`
	Price      decimal.Decimal `json:"price"`
}

// RecordPrice appends a price unless it matches the latest for the pair
func (h *QuotationHandler) RecordPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	price, added, err := h.prices.Record(r.Context(), req.ProductID, req.SupplierID, req.Price)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if added {
		httputil.Created(w, price)
		return
	}

	httputil.JSON(w, http.StatusOK, price)
}
