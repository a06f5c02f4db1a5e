package httputil

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	userSlotKey  contextKey = "user_slot"
)

// userSlot lets Authenticate, which runs deeper in the chain, report the
// caller back to Logger.
type userSlot struct{ id string }

// TokenParser turns a bearer token into the actor it was issued to.
type TokenParser interface {
	ParseActor(token string) (*actor.Actor, error)
}

// RequestID middleware adds a request ID to each request. The same id is
// used as correlation id for events published while serving it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = messaging.WithCorrelationID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			slot := &userSlot{}

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), userSlotKey, slot)))

			log.WithRequestID(GetRequestID(r.Context())).
				WithUserID(slot.id).
				Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, errors.Internal("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the resulting actor in the request context.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				Error(w, errors.Unauthorized("missing bearer token"))
				return
			}

			a, err := tokens.ParseActor(token)
			if err != nil {
				Error(w, err)
				return
			}

			if slot, ok := r.Context().Value(userSlotKey).(*userSlot); ok {
				slot.id = a.ID
			}
			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}

// Authorize runs the capability check for the request's actor.
func Authorize(ctx context.Context, action, resource string) error {
	a := actor.FromContext(ctx)
	if a == nil {
		return errors.Unauthorized("authentication required")
	}
	if !permissions.Can(a.Role, action, resource) {
		return errors.Forbidden("role " + a.Role + " may not " + action + " " + resource)
	}
	return nil
}

// RequirePermission is Authorize as middleware, for whole route groups.
func RequirePermission(action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(r.Context(), action, resource); err != nil {
				Error(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
