package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// NotificationHandler serves the caller's own notifications
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        log,
	}
}

// Routes mounts /notifications
func (h *NotificationHandler) Routes(r chi.Router) {
	r.With(can(permissions.ActionRead, permissions.ResourceNotifications)).Get("/", h.List)
	r.With(can(permissions.ActionUpdate, permissions.ResourceNotifications)).Post("/{id}/read", h.MarkRead)
}

// List lists the caller's notifications; unread=true hides read ones
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	if a == nil {
		httputil.Error(w, errors.Unauthorized("authentication required"))
		return
	}
	pg, page, perPage := pageOf(r)

	list, total, err := h.notifications.ListForUser(r.Context(), a.ID, r.URL.Query().Get("unread") == "true", pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, list, httputil.NewMeta(page, perPage, total))
}

// MarkRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	if a == nil {
		httputil.Error(w, errors.Unauthorized("authentication required"))
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), a.ID)
	respond(w, n, err)
}
