// Package actor identifies the user or system performing an action. The
// authentication middleware puts the actor in the request context and the
// services read it back for audit rows and capability checks.
package actor

import (
	"context"
	"fmt"
)

const systemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a.IsSystem() {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Username, a.Role)
}

// UserID returns the actor id for foreign keys, or nil for the system.
func (a *Actor) UserID() *string {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// FromContextOrSystem is FromContext falling back to SystemActor.
func FromContextOrSystem(ctx context.Context) *Actor {
	if a := FromContext(ctx); a != nil {
		return a
	}
	return SystemActor()
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Use this for the scheduler and event consumers.
func SystemActor() *Actor {
	return &Actor{
		ID:       systemID,
		Username: "system",
		Role:     "ADMIN",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemID
}
