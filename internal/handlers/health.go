package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/handlers/render"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func handleHealth(db execer) http.HandlerFunc {
	type response struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := db.Exec(r.Context(), "SELECT 1"); err != nil {
			render.Error(w, fmt.Errorf("%w: ping: %w", apperrors.ErrServiceUnavailable, err))
			return
		}
		render.JSON(w, response{Status: "ok"})
	}
}
