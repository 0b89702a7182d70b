package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/urfube/internal/handlers/render"
)

// HandlerFunc runs one call. Returned value is marshalled as the call result
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Handle adapts typed function to HandlerFunc
// Params are decoded by name into P and checked by its 'validate' tags, P has to be a struct
func Handle[P any, R any](fn func(ctx context.Context, params P) (R, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params P
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}

		if err := render.Validate(params); err != nil {
			var errs validator.ValidationErrors
			if errors.As(err, &errs) {
				return nil, InvalidParams(render.FieldMessages(errs))
			}
			return nil, err
		}

		return fn(ctx, params)
	}
}

func decodeParams(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] != '{' {
		return InvalidParams("params must be an object")
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return InvalidParams(err.Error())
	}
	return nil
}
