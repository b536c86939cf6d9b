// Package session scopes one pooled connection to one request, binding the
// ambient tenant into the connection's session state for the duration.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"corpdesk/internal/logger"
	"corpdesk/internal/pool"
	"corpdesk/internal/reqctx"
)

// ErrTenantBind means the set-tenant directive failed. The request cannot
// safely proceed without isolation, so this is always surfaced.
var ErrTenantBind = errors.New("tenant binding failed")

const (
	bindTenantSQL  = `SELECT set_config('app.current_tenant_id', $1, true)`
	resetTenantSQL = `RESET app.current_tenant_id`
)

// With acquires a connection, binds the tenant carried by ctx (if any) into
// the connection's session state, runs fn, and on every exit path — normal
// return, error, panic or cancellation — clears the binding and releases
// the connection. A failed reset is logged and swallowed so it never masks
// the result of fn; a failed bind aborts before fn runs.
func With(ctx context.Context, mgr *pool.Manager, log logger.Logger, fn func(ctx context.Context, conn pool.Conn) error) error {
	conn, err := mgr.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// The reset must run even when ctx was cancelled mid-request.
		if _, rerr := conn.Exec(context.WithoutCancel(ctx), resetTenantSQL); rerr != nil {
			log.Warn("failed to clear tenant binding before release",
				append(reqctx.LogFields(ctx), zap.Error(rerr))...)
		}
		conn.Release()
	}()

	if tenantID, ok := reqctx.TenantID(ctx); ok {
		if _, err := conn.Exec(ctx, bindTenantSQL, tenantID.String()); err != nil {
			return fmt.Errorf("%w: %v", ErrTenantBind, err)
		}
	}

	return fn(ctx, conn)
}
