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

// AuditHandler exposes the audit log, read-only
type AuditHandler struct {
	audit  *service.AuditService
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *service.AuditService, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: log,
	}
}

// Routes mounts /audit
func (h *AuditHandler) Routes(r chi.Router) {
	r.Use(can(permissions.ActionRead, permissions.ResourceAudit))
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// List lists audit entries, newest first. Supports model, object_id and user_id.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)
	q := r.URL.Query()
	f := repository.AuditFilter{
		Model:    q.Get("model"),
		ObjectID: q.Get("object_id"),
		UserID:   q.Get("user_id"),
	}

	entries, total, err := h.audit.List(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, httputil.NewMeta(page, perPage, total))
}

// Get gets an audit entry by ID
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.audit.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, entry, err)
}
