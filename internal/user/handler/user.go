package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/user/service"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

// UserHandler handles user endpoints
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the authenticated /users endpoints
func (h *UserHandler) Routes(r chi.Router) {
	r.Get("/me", h.Me)
	r.With(httputil.RequirePermission(permissions.ActionRead, permissions.ResourceUsers)).Get("/", h.List)
	r.With(httputil.RequirePermission(permissions.ActionCreate, permissions.ResourceUsers)).Post("/", h.Create)
	r.With(httputil.RequirePermission(permissions.ActionRead, permissions.ResourceUsers)).Get("/{id}", h.Get)
}

// Login exchanges credentials for an access token
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// List lists all users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)

	users, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, users, httputil.NewMeta(page, perPage, total))
}

// Get gets a user by ID
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Me returns the authenticated user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	if a == nil {
		httputil.Error(w, errors.Unauthorized("authentication required"))
		return
	}

	user, err := h.service.GetByID(r.Context(), a.ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Create creates a new user
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}
