package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// StockHandler handles entry, exit and physical count endpoints
type StockHandler struct {
	stock  *service.StockService
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stock *service.StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		stock:  stock,
		logger: log,
	}
}

// EntryRoutes mounts /entries
func (h *StockHandler) EntryRoutes(r chi.Router) {
	crud(r, permissions.ResourceEntries, h.ListEntries, h.CreateEntry, h.GetEntry, h.UpdateEntry, h.DeleteEntry)
}

// ExitRoutes mounts /exits. Exits are immutable once recorded.
func (h *StockHandler) ExitRoutes(r chi.Router) {
	crud(r, permissions.ResourceExits, h.ListExits, h.CreateExit, h.GetExit, h.UpdateExit, h.DeleteExit)
}

// CountRoutes mounts /physical-counts
func (h *StockHandler) CountRoutes(r chi.Router) {
	r.With(can(permissions.ActionRead, permissions.ResourcePhysicalCounts)).Get("/", h.ListCounts)
	r.With(can(permissions.ActionCreate, permissions.ResourcePhysicalCounts)).Post("/", h.CreateCount)
	r.With(can(permissions.ActionRead, permissions.ResourcePhysicalCounts)).Get("/{id}", h.GetCount)
	r.With(can(permissions.ActionUpdate, permissions.ResourcePhysicalCounts)).Post("/{id}/reconcile", h.Reconcile)
}

func stockFilter(r *http.Request) (repository.StockFilter, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return repository.StockFilter{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return repository.StockFilter{}, err
	}
	return repository.StockFilter{ProductID: r.URL.Query().Get("product_id"), From: from, To: to}, nil
}

// ListEntries lists entries. Supports product_id, from and to.
func (h *StockHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	f, err := stockFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	pg, page, perPage := pageOf(r)

	entries, total, err := h.stock.ListEntries(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, httputil.NewMeta(page, perPage, total))
}

// CreateEntry records a stock entry
func (h *StockHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req service.EntryInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.stock.ApplyEntry(r.Context(), req)
	respondCreated(w, entry, err)
}

// GetEntry gets an entry by ID
func (h *StockHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.stock.GetEntry(r.Context(), chi.URLParam(r, "id"))
	respond(w, entry, err)
}

// UpdateEntry corrects the quantity or price of a manual entry
func (h *StockHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req service.EntryUpdate
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.stock.UpdateEntry(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, entry, err)
}

// DeleteEntry deletes an entry and takes its quantity back out of stock
func (h *StockHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.stock.DeleteEntry(r.Context(), chi.URLParam(r, "id")))
}

// ListExits lists exits. Supports product_id, from and to.
func (h *StockHandler) ListExits(w http.ResponseWriter, r *http.Request) {
	f, err := stockFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	pg, page, perPage := pageOf(r)

	exits, total, err := h.stock.ListExits(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, exits, httputil.NewMeta(page, perPage, total))
}

// CreateExit records a stock exit. The responsible user defaults to the caller.
func (h *StockHandler) CreateExit(w http.ResponseWriter, r *http.Request) {
	var req service.ExitInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.ResponsibleID == nil {
		if a := actor.FromContext(r.Context()); a != nil {
			req.ResponsibleID = &a.ID
		}
	}

	exit, err := h.stock.ApplyExit(r.Context(), req)
	respondCreated(w, exit, err)
}

// GetExit gets an exit by ID
func (h *StockHandler) GetExit(w http.ResponseWriter, r *http.Request) {
	exit, err := h.stock.GetExit(r.Context(), chi.URLParam(r, "id"))
	respond(w, exit, err)
}

// UpdateExit always fails with a state conflict
func (h *StockHandler) UpdateExit(w http.ResponseWriter, r *http.Request) {
	httputil.Error(w, h.stock.UpdateExit(r.Context(), chi.URLParam(r, "id")))
}

// DeleteExit deletes an exit and returns its quantity to stock
func (h *StockHandler) DeleteExit(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.stock.DeleteExit(r.Context(), chi.URLParam(r, "id")))
}

type countRequest struct {
	ProductID     string  `json:"product_id" validate:"required"`
	StockReal     *int    `json:"stock_real" validate:"required,gte=0"`
	ResponsibleID *string `json:"responsible_id,omitempty"`
}

// ListCounts lists physical counts. Supports product_id, from and to.
func (h *StockHandler) ListCounts(w http.ResponseWriter, r *http.Request) {
	f, err := stockFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	pg, page, perPage := pageOf(r)

	counts, total, err := h.stock.ListPhysicalCounts(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, counts, httputil.NewMeta(page, perPage, total))
}

// CreateCount records a physical count without touching stock
func (h *StockHandler) CreateCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.ResponsibleID == nil {
		if a := actor.FromContext(r.Context()); a != nil {
			req.ResponsibleID = &a.ID
		}
	}

	count, err := h.stock.ApplyPhysicalCount(r.Context(), req.ProductID, *req.StockReal, req.ResponsibleID)
	respondCreated(w, count, err)
}

// GetCount gets a physical count by ID
func (h *StockHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.stock.GetPhysicalCount(r.Context(), chi.URLParam(r, "id"))
	respond(w, count, err)
}

// Reconcile sets product stock to the counted quantity
func (h *StockHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	count, err := h.stock.ReconcileStock(r.Context(), chi.URLParam(r, "id"))
	respond(w, count, err)
}
