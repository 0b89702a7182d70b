package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/urfube/internal/apperrors"
)

var (
	ErrNoScope     = errors.New("no connection scope in context")
	ErrScopeClosed = errors.New("connection scope is closed")
)

// Conn is a database connection checked out for a single request
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)

	// Return connection to its owner
	Release()
}

// Acquirer hands out connections, usually from a pool
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

// PoolAcquirer takes connections from pgx pool
type PoolAcquirer struct {
	Pool *pgxpool.Pool
}

func (a PoolAcquirer) Acquire(ctx context.Context) (Conn, error) {
	conn, err := a.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type scopeKey struct{}

// Scope owns exactly one connection for the lifetime of one request
// It lives in the request context only and is never shared between requests
type Scope struct {
	mu       sync.Mutex
	conn     Conn
	released bool
}

// Enter acquires a connection and returns a context that carries a brand new scope
// A scope already present in ctx is shadowed, never reused
func Enter(ctx context.Context, acq Acquirer) (context.Context, *Scope, error) {
	conn, err := acq.Acquire(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("%w: acquire connection: %w", apperrors.ErrServiceUnavailable, err)
	}

	s := &Scope{conn: conn}
	return context.WithValue(ctx, scopeKey{}, s), s, nil
}

// Exit releases the connection. Safe to call more than once
func (s *Scope) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	s.released = true
	s.conn.Release()
}

// Closed reports whether the connection was released
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Conn returns the scoped connection while the scope is open
func (s *Scope) Conn() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, ErrScopeClosed
	}
	return s.conn, nil
}

// FromContext returns the scope entered for the current request
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}

// WithScope runs fn inside a new scope and releases the connection on every exit path, panics included
// Returned error is either the acquisition failure or the error of fn
func WithScope(ctx context.Context, acq Acquirer, fn func(ctx context.Context) error) error {
	ctx, scope, err := Enter(ctx, acq)
	if err != nil {
		return err
	}
	defer scope.Exit()

	return fn(ctx)
}

// Scoped runs every statement on the connection of the request found in ctx
// Repositories are built once on top of it and stay request isolated
type Scoped struct{}

func (Scoped) conn(ctx context.Context) (Conn, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoScope
	}
	return s.Conn()
}

func (d Scoped) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	conn, err := d.conn(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return conn.Exec(ctx, sql, args...)
}

func (d Scoped) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	conn, err := d.conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Query(ctx, sql, args...)
}

func (d Scoped) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	conn, err := d.conn(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return conn.QueryRow(ctx, sql, args...)
}

func (d Scoped) Begin(ctx context.Context) (pgx.Tx, error) {
	conn, err := d.conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Begin(ctx)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
