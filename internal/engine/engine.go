// Package engine implements the business operations of the backend:
// authentication, document lifecycle, trays, tickets and the admin
// surface. Every operation runs on a tenant-scoped session checked out
// from the pool manager.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/afero"

	"corpdesk/internal/config"
	"corpdesk/internal/identity"
	"corpdesk/internal/logger"
	"corpdesk/internal/pool"
	"corpdesk/internal/repo"
	"corpdesk/internal/session"
)

var (
	// ErrInvalidCredentials covers unknown users, disabled accounts and
	// wrong passwords alike, so login failures are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists reports a registration against a taken username or email.
	ErrUserExists = errors.New("user already exists")

	// ErrNoMembership reports an organization switch the user does not
	// belong to.
	ErrNoMembership = errors.New("no membership in organization")

	// ErrSweep reports that the pre-listing lifecycle sweep failed; the
	// listing is aborted rather than served stale.
	ErrSweep = errors.New("document lifecycle sweep failed")
)

type Engine struct {
	Pool      *pool.Manager
	Repo      repo.Repo
	Files     afero.Fs
	Passwords identity.BcryptPasswords
	Issuer    identity.Issuer
	Cfg       *config.Config
	Log       logger.Logger

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func New(mgr *pool.Manager, cfg *config.Config, files afero.Fs, log logger.Logger) *Engine {
	return &Engine{
		Pool:  mgr,
		Files: files,
		Issuer: identity.Issuer{
			Secret: cfg.Server.JWTSecret,
			TTL:    cfg.Server.TokenTTL.Std(),
		},
		Cfg: cfg,
		Log: log,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// run executes fn on a tenant-bound session.
func (e *Engine) run(ctx context.Context, fn func(ctx context.Context, conn pool.Conn) error) error {
	return session.With(ctx, e.Pool, e.Log, fn)
}

// Ping checks out a connection and runs a trivial query, for readiness
// probes. A degraded pool surfaces as pool.ErrPoolUnavailable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var one int
		return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
	})
}
