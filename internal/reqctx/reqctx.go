// Package reqctx carries per-request identity through a context.Context.
// Each inbound request gets its own Context value at entry; nothing here is
// ever shared between requests.
package reqctx

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey struct{}

// Context is the identity attached to one request. Tenant and user are
// optional: both nil means no tenant scoping was requested (public
// endpoints). The trace id is always set.
type Context struct {
	TenantID *uuid.UUID
	UserID   *uuid.UUID
	TraceID  uuid.UUID
}

// New builds a request context with a freshly generated trace id.
func New(userID, tenantID *uuid.UUID) Context {
	return Context{
		TenantID: tenantID,
		UserID:   userID,
		TraceID:  uuid.New(),
	}
}

// With attaches rc to ctx.
func With(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From returns the request context attached to ctx, if any.
func From(ctx context.Context) (Context, bool) {
	rc, ok := ctx.Value(ctxKey{}).(Context)
	return rc, ok
}

// TenantID returns the ambient tenant id, if one was resolved.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	rc, ok := From(ctx)
	if !ok || rc.TenantID == nil {
		return uuid.UUID{}, false
	}
	return *rc.TenantID, true
}

// UserID returns the ambient user id, if one was resolved.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	rc, ok := From(ctx)
	if !ok || rc.UserID == nil {
		return uuid.UUID{}, false
	}
	return *rc.UserID, true
}

// TraceID returns the ambient trace id, or uuid.Nil outside a request.
func TraceID(ctx context.Context) uuid.UUID {
	rc, ok := From(ctx)
	if !ok {
		return uuid.Nil
	}
	return rc.TraceID
}

// LogFields renders the request identity as structured log fields so every
// line written while serving a request is attributable.
func LogFields(ctx context.Context) []zap.Field {
	rc, ok := From(ctx)
	if !ok {
		return nil
	}
	fields := []zap.Field{zap.String("trace_id", rc.TraceID.String())}
	if rc.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", rc.TenantID.String()))
	}
	if rc.UserID != nil {
		fields = append(fields, zap.String("user_id", rc.UserID.String()))
	}
	return fields
}
