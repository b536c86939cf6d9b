// Package pool owns the process-wide database connection pool: bootstrap
// with classified retries, degraded-mode startup and connection checkout.
package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"corpdesk/internal/logger"
)

// ErrPoolUnavailable means there is no usable pool to serve the request.
// Handlers translate it to a service-unavailable response.
var ErrPoolUnavailable = errors.New("database pool unavailable")

// Config holds the pool settings, sourced from the service configuration.
type Config struct {
	URL             string
	MinConns        int32
	MaxConns        int32
	MaxConnIdleTime time.Duration
	CommandTimeout  time.Duration
	RetryAttempts   int
	RetryWait       time.Duration
	OverloadWait    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConns == 0 {
		c.MaxConns = 20
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 60 * time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 5
	}
	if c.RetryWait == 0 {
		c.RetryWait = 2 * time.Second
	}
	if c.OverloadWait == 0 {
		c.OverloadWait = 5 * time.Second
	}
	return c
}

// State of the pool lifecycle. Degraded is terminal until the process
// restarts: a pool that exhausted its bootstrap retries is never re-probed.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Conn is one checked-out connection, exclusive to its holder until
// released. Release returns it to the free list; the pool itself decides
// whether to close it based on idle lifetime.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// Pool abstracts the underlying pgx pool so tests can substitute one.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Close()
}

// Connector creates the underlying pool. Swapped out in tests.
type Connector func(ctx context.Context, cfg Config) (Pool, error)

type pgxPool struct {
	*pgxpool.Pool
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func pgxConnector(ctx context.Context, cfg Config) (Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConns = cfg.MaxConns
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime

	pl, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pl.Ping(ctx); err != nil {
		pl.Close()
		return nil, err
	}
	return pgxPool{pl}, nil
}

// Manager is the process-wide pool owner.
type Manager struct {
	cfg     Config
	log     logger.Logger
	connect Connector

	group singleflight.Group

	mu    sync.Mutex
	state State
	pool  Pool
}

type Option func(*Manager)

// WithConnector overrides how the underlying pool is created.
func WithConnector(c Connector) Option {
	return func(m *Manager) {
		m.connect = c
	}
}

func NewManager(cfg Config, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg.withDefaults(),
		log:     log,
		connect: pgxConnector,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Init bootstraps the pool. Concurrent callers collapse into a single
// attempt; callers arriving after completion return immediately. Exhausting
// every attempt leaves the manager Degraded and still returns nil: the
// process must come up and serve degraded responses rather than crash.
// The only error returned is a context cancellation during bootstrap.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateReady, StateDegraded:
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	_, err, _ := m.group.Do("init", func() (any, error) {
		return nil, m.bootstrap(ctx)
	})
	return err
}

func (m *Manager) bootstrap(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady || m.state == StateDegraded {
		m.mu.Unlock()
		return nil
	}
	m.state = StateInitializing
	m.mu.Unlock()

	policy := &classifiedWait{wait: m.cfg.RetryWait}
	attempt := 0
	var created Pool

	op := func() error {
		attempt++
		pl, err := m.connect(ctx, m.cfg)
		if err != nil {
			if isOverloaded(err) {
				policy.wait = m.cfg.OverloadWait
				m.log.Warn("database overloaded, waiting for reset",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", m.cfg.RetryAttempts),
					zap.Error(err))
			} else {
				policy.wait = m.cfg.RetryWait
				m.log.Error("database connection failed",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", m.cfg.RetryAttempts),
					zap.Error(err))
			}
			return err
		}
		created = pl
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(m.cfg.RetryAttempts-1)), ctx))

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err == nil:
		m.pool = created
		m.state = StateReady
		m.log.Info("database pool ready",
			zap.Int32("min_conns", m.cfg.MinConns),
			zap.Int32("max_conns", m.cfg.MaxConns))
		return nil
	case ctx.Err() != nil:
		// Bootstrap was cancelled, not exhausted; a later caller may retry.
		m.state = StateUninitialized
		return ctx.Err()
	default:
		m.state = StateDegraded
		m.log.Error("all database connection attempts failed, continuing in degraded mode",
			zap.Int("attempts", attempt),
			zap.Error(err))
		return nil
	}
}

// Acquire checks out one connection, lazily bootstrapping the pool on first
// use. With no usable pool it fails with ErrPoolUnavailable; otherwise it
// waits until a connection frees up or the command timeout elapses.
func (m *Manager) Acquire(ctx context.Context) (Conn, error) {
	if m.State() == StateUninitialized {
		if err := m.Init(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	st, pl := m.state, m.pool
	m.mu.Unlock()
	if st != StateReady || pl == nil {
		return nil, ErrPoolUnavailable
	}

	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.CommandTimeout)
	defer cancel()
	conn, err := pl.Acquire(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// Shutdown closes the pool. The manager can be re-initialized afterwards,
// which only matters for tests; production code shuts down on exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	pl := m.pool
	m.pool = nil
	m.state = StateUninitialized
	m.mu.Unlock()
	if pl != nil {
		pl.Close()
	}
}

// classifiedWait is a backoff policy whose next interval is chosen by the
// error classification of the most recent attempt.
type classifiedWait struct {
	wait time.Duration
}

func (c *classifiedWait) NextBackOff() time.Duration { return c.wait }
func (c *classifiedWait) Reset()                     {}

// isOverloaded reports whether the connection failure signals a backend
// that needs a longer wait before the next attempt: a pooler circuit
// breaker, too many connections, or a server still starting up.
func isOverloaded(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "53300", "53400", "57P03":
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "circuit breaker open")
}
