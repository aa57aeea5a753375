// Package logging carries request-scoped identifiers through contexts so log
// lines from different layers can be correlated.
package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	userKey    contextKey = "user"
	roleKey    contextKey = "role"
)

// NewTraceID generates a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID attaches a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the context's trace ID, or "" when absent.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithUser attaches the acting user and role to the context.
func WithUser(ctx context.Context, user, role string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, roleKey, role)
}

// GetUser returns the context's acting user, or "" when absent.
func GetUser(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

// GetRole returns the context's acting role, or "" when absent.
func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}
