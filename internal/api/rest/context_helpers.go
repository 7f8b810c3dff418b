package rest

import (
	"context"

	"github.com/google/uuid"
)

// RequestIDFromContext returns the request ID, or "" when absent
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// UserIDFromContext returns the authenticated caller, or uuid.Nil when absent
func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(contextKeyUserID).(uuid.UUID)
	return id
}

// UserRoleFromContext returns the caller's role, or "" when absent
func UserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(contextKeyUserRole).(string)
	return role
}
