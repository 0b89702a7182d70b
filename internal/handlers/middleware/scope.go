package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/logger"
)

// ConnectionScope checks out one database connection per request and releases it when the request ends
// fail renders the response when no connection could be acquired
func ConnectionScope(acq db.Acquirer, l logger.Logger, fail func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := db.WithScope(r.Context(), acq, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				logger.FromContext(r.Context(), l).Error("connection scope not entered", "error", err)
				fail(w, err)
			}
		})
	}
}
