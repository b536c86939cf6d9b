package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"corpdesk/internal/logger"
)

type fakeConn struct {
	release func()
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (c *fakeConn) Release() {
	if c.release != nil {
		c.release()
	}
}

// fakePool hands out at most cap(slots) connections at a time.
type fakePool struct {
	slots  chan struct{}
	closed atomic.Bool
}

func newFakePool(size int) *fakePool {
	p := &fakePool{slots: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		p.slots <- struct{}{}
	}
	return p
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	select {
	case <-p.slots:
		return &fakeConn{release: func() { p.slots <- struct{}{} }}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *fakePool) Close() { p.closed.Store(true) }

func testConfig() Config {
	return Config{
		RetryAttempts: 5,
		RetryWait:     time.Millisecond,
		OverloadWait:  2 * time.Millisecond,
	}
}

func TestInitSuccess(t *testing.T) {
	var calls atomic.Int32
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			calls.Add(1)
			return newFakePool(1), nil
		}))

	require.NoError(t, mgr.Init(context.Background()))
	require.Equal(t, StateReady, mgr.State())
	require.NoError(t, mgr.Init(context.Background()))
	require.Equal(t, int32(1), calls.Load(), "completed init must not reconnect")
}

func TestInitRetriesBoundedAndDegrades(t *testing.T) {
	var calls atomic.Int32
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		}))

	// Exhaustion is swallowed: the process must still start.
	require.NoError(t, mgr.Init(context.Background()))
	require.Equal(t, int32(5), calls.Load())
	require.Equal(t, StateDegraded, mgr.State())

	// Degraded is terminal: another Init must not retry.
	require.NoError(t, mgr.Init(context.Background()))
	require.Equal(t, int32(5), calls.Load())
}

func TestAcquireOnDegradedFailsFast(t *testing.T) {
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			return nil, errors.New("connection refused")
		}))
	require.NoError(t, mgr.Init(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Acquire(context.Background())
		done <- err
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrPoolUnavailable)
	case <-time.After(time.Second):
		t.Fatal("acquire on degraded pool blocked")
	}
}

func TestAcquireLazilyInitializes(t *testing.T) {
	var calls atomic.Int32
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			calls.Add(1)
			return newFakePool(1), nil
		}))

	conn, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, StateReady, mgr.State())
}

func TestConcurrentInitCollapses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			calls.Add(1)
			<-release
			return newFakePool(1), nil
		}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, mgr.Init(context.Background()))
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load(), "concurrent callers must collapse into one attempt")
	require.Equal(t, StateReady, mgr.State())
}

func TestInitCancellationIsNotExhaustion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			cancel()
			return nil, errors.New("connection refused")
		}))

	err := mgr.Init(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateUninitialized, mgr.State())
}

// With one connection, a second caller waits until the first releases.
func TestAcquireWaitsForFreeConnection(t *testing.T) {
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			return newFakePool(1), nil
		}))

	first, err := mgr.Acquire(context.Background())
	require.NoError(t, err)

	got := make(chan error, 1)
	go func() {
		conn, err := mgr.Acquire(context.Background())
		if err == nil {
			conn.Release()
		}
		got <- err
	}()

	select {
	case <-got:
		t.Fatal("second acquire should wait for the first release")
	case <-time.After(20 * time.Millisecond):
	}

	first.Release()
	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed")
	}
}

func TestAcquireTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.CommandTimeout = 20 * time.Millisecond
	mgr := NewManager(cfg, logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			return newFakePool(1), nil
		}))

	first, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	defer first.Release()

	_, err = mgr.Acquire(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownClosesPool(t *testing.T) {
	pl := newFakePool(1)
	mgr := NewManager(testConfig(), logger.NewNoopLogger(), WithConnector(
		func(ctx context.Context, cfg Config) (Pool, error) {
			return pl, nil
		}))
	require.NoError(t, mgr.Init(context.Background()))
	mgr.Shutdown()
	require.True(t, pl.closed.Load())
	require.Equal(t, StateUninitialized, mgr.State())
}

func TestIsOverloaded(t *testing.T) {
	require.True(t, isOverloaded(errors.New("Circuit breaker open: too many failures")))
	require.True(t, isOverloaded(&pgconn.PgError{Code: "53300"}))
	require.True(t, isOverloaded(&pgconn.PgError{Code: "57P03"}))
	require.False(t, isOverloaded(errors.New("connection refused")))
	require.False(t, isOverloaded(&pgconn.PgError{Code: "28P01"}))
	require.False(t, isOverloaded(nil))
}
