package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/handlers/render"
)

type nopConn struct {
	released *atomic.Int32
}

func (c nopConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c nopConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (c nopConn) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (c nopConn) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}

func (c nopConn) Release() { c.released.Add(1) }

type acquirerFunc func(ctx context.Context) (db.Conn, error)

func (f acquirerFunc) Acquire(ctx context.Context) (db.Conn, error) { return f(ctx) }

func TestConnectionScope(t *testing.T) {
	renderFail := func(w http.ResponseWriter, err error) { render.Error(w, err) }

	t.Run("scope available inside and released after", func(t *testing.T) {
		released := &atomic.Int32{}
		acq := acquirerFunc(func(context.Context) (db.Conn, error) { return nopConn{released: released}, nil })

		var scope *db.Scope
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := db.FromContext(r.Context())
			require.True(t, ok, "handler has to run inside scope")
			require.False(t, s.Closed())
			scope = s
			w.WriteHeader(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		ConnectionScope(acq, newRecLogger(), renderFail)(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", nil))

		require.Equal(t, http.StatusNoContent, w.Code)
		require.True(t, scope.Closed(), "scope must be closed when request ends")
		require.EqualValues(t, 1, released.Load())
	})

	t.Run("released when handler panics", func(t *testing.T) {
		released := &atomic.Int32{}
		acq := acquirerFunc(func(context.Context) (db.Conn, error) { return nopConn{released: released}, nil })
		h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

		require.Panics(t, func() {
			ConnectionScope(acq, newRecLogger(), renderFail)(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api", nil))
		})
		require.EqualValues(t, 1, released.Load())
	})

	t.Run("acquire failure", func(t *testing.T) {
		l := newRecLogger()
		acq := acquirerFunc(func(context.Context) (db.Conn, error) { return nil, errors.New("too many clients") })
		called := false
		h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

		w := httptest.NewRecorder()
		ConnectionScope(acq, l, renderFail)(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", nil))

		require.False(t, called, "handler must not run without connection")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.JSONEq(t, `{"error":"service_error","code":-32000,"message":"Service unavailable"}`, w.Body.String())

		entries := l.Entries()
		require.Len(t, entries, 1)
		require.Equal(t, "error", entries[0].level)
		require.ErrorIs(t, entries[0].args[1].(error), apperrors.ErrServiceUnavailable)
	})
}
