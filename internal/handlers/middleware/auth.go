package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/handlers/render"
	"github.com/nkiryanov/urfube/internal/handlers/userctx"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/service/auth"
)

type authenticator interface {
	TokenFromRequest(r *http.Request) string
	Authenticate(ctx context.Context, raw string) (auth.Principal, error)
}

// AuthMiddleware lets only requests with valid access token through
// Principal is available to next handler with userctx.FromContext
// Connection is held only while the token is resolved, next runs without connection scope
func AuthMiddleware(acq db.Acquirer, as authenticator, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p auth.Principal
			err := db.WithScope(r.Context(), acq, func(ctx context.Context) error {
				var err error
				p, err = as.Authenticate(ctx, as.TokenFromRequest(r))
				return err
			})
			if err != nil {
				if errors.Is(err, apperrors.ErrServiceUnavailable) {
					logger.FromContext(r.Context(), l).Error("could not authenticate request", "error", err)
				}
				unauthorized(w, err)
				return
			}

			ctx := userctx.New(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	switch {
	case !ok:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	case errors.Is(err, apperrors.ErrServiceUnavailable):
		render.AppError(w, appErr, http.StatusServiceUnavailable)
	default:
		// Token subject that vanished is still an authentication failure
		render.AppError(w, appErr, http.StatusUnauthorized)
	}
}
