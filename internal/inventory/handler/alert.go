package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	alerts *service.AlertService
	logger *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alerts *service.AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: log,
	}
}

// Routes mounts /alerts
func (h *AlertHandler) Routes(r chi.Router) {
	r.With(can(permissions.ActionRead, permissions.ResourceAlerts)).Get("/", h.List)
	r.With(can(permissions.ActionCreate, permissions.ResourceAlerts)).Post("/", h.Create)
	r.With(can(permissions.ActionUpdate, permissions.ResourceAlerts)).Post("/evaluate", h.Evaluate)
	r.With(can(permissions.ActionRead, permissions.ResourceAlerts)).Get("/{id}", h.Get)
	r.With(can(permissions.ActionUpdate, permissions.ResourceAlerts)).Post("/{id}/archive", h.Archive)
	r.With(can(permissions.ActionDelete, permissions.ResourceAlerts)).Delete("/{id}", h.Delete)
}

// List lists alerts. Supports state and product_id.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)
	f := repository.AlertFilter{
		State:     r.URL.Query().Get("state"),
		ProductID: r.URL.Query().Get("product_id"),
	}

	alerts, total, err := h.alerts.List(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, alerts, httputil.NewMeta(page, perPage, total))
}

// Create raises an alert by hand
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ManualAlertInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	alert, err := h.alerts.CreateManual(r.Context(), req)
	respondCreated(w, alert, err)
}

// Evaluate runs a low-stock sweep over every enabled product
func (h *AlertHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	result, err := h.alerts.EvaluateAllProducts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().
		Int("scanned", result.Scanned).
		Int("created", result.Created).
		Msg("manual alert evaluation")
	httputil.JSON(w, http.StatusOK, result)
}

// Get gets an alert by ID
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerts.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, alert, err)
}

// Archive retires an open alert
func (h *AlertHandler) Archive(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerts.Archive(r.Context(), chi.URLParam(r, "id"))
	respond(w, alert, err)
}

// Delete deletes an alert no order references
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.alerts.Delete(r.Context(), chi.URLParam(r, "id")))
}
