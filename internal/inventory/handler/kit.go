package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// KitHandler handles kit endpoints
type KitHandler struct {
	kits   *service.KitService
	logger *logger.Logger
}

// NewKitHandler creates a new kit handler
func NewKitHandler(kits *service.KitService, log *logger.Logger) *KitHandler {
	return &KitHandler{
		kits:   kits,
		logger: log,
	}
}

// Routes mounts /kits
func (h *KitHandler) Routes(r chi.Router) {
	crud(r, permissions.ResourceKits, h.List, h.Create, h.Get, nil, h.Delete)
	update := can(permissions.ActionUpdate, permissions.ResourceKits)
	r.With(update).Post("/{id}/items", h.AddItem)
	r.With(update).Put("/items/{itemID}", h.UpdateItem)
	r.With(update).Delete("/items/{itemID}", h.RemoveItem)
}

// List lists kits with their items
func (h *KitHandler) List(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)

	kits, total, err := h.kits.List(r.Context(), pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, kits, httputil.NewMeta(page, perPage, total))
}

// Create creates a kit and its items
func (h *KitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.KitInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	kit, err := h.kits.CreateKit(r.Context(), req)
	respondCreated(w, kit, err)
}

// Get gets a kit by ID
func (h *KitHandler) Get(w http.ResponseWriter, r *http.Request) {
	kit, err := h.kits.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, kit, err)
}

// Delete deletes a kit and its items
func (h *KitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.kits.Delete(r.Context(), chi.URLParam(r, "id")))
}

// AddItem adds a product to a kit
func (h *KitHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.KitItemInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.kits.AddItem(r.Context(), chi.URLParam(r, "id"), req)
	respondCreated(w, item, err)
}

// UpdateItem changes a kit line
func (h *KitHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req service.KitItemInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.kits.UpdateItem(r.Context(), chi.URLParam(r, "itemID"), req)
	respond(w, item, err)
}

// RemoveItem removes a kit line
func (h *KitHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.kits.RemoveItem(r.Context(), chi.URLParam(r, "itemID")))
}
