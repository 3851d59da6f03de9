// Package actor identifies who performs an action. Every assignment row
// records the acting user on add and on remove; background jobs act as the
// system actor.
package actor

import (
	"context"
	"strings"
)

// SystemID is recorded for work done by the scheduler and CLI tools.
const SystemID = "system"

// Actor represents the entity performing an action in the system.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the best human readable label for the actor.
func (a *Actor) DisplayName() string {
	if a == nil {
		return "system"
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if a.Email != "" {
		return a.Email
	}
	return a.ID
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	return a.DisplayName()
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	return a == nil || a.ID == SystemID
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context, or nil.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(actorContextKey).(*Actor)
	return a
}

// OrSystem returns the actor carried by ctx, falling back to the system actor.
func OrSystem(ctx context.Context) *Actor {
	if a := FromContext(ctx); a != nil && a.ID != "" {
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
func SystemActor() *Actor {
	return &Actor{ID: SystemID, Name: "System"}
}
