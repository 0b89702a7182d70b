package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/handlers/render"
	"github.com/nkiryanov/urfube/internal/handlers/userctx"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/service/video"
)

const (
	maxUploadSize   = 1 << 30
	maxUploadMemory = 32 << 20
)

type uploadForm struct {
	Title       string                `json:"title" validate:"required,max=255"`
	Description string                `json:"description" validate:"max=5000"`
	File        *multipart.FileHeader `json:"file" validate:"required"`
}

// handleUpload runs with no connection scope
// Storage steps of the upload get their own short scopes from acq
func handleUpload(videos videoService, acq db.Acquirer, l logger.Logger) http.HandlerFunc {
	withDB := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithScope(ctx, acq, fn)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			render.ServiceError(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll() // nolint:errcheck

		form := uploadForm{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
		}
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			form.File = files[0]
		}

		if err := render.Validate(form); err != nil {
			var errs validator.ValidationErrors
			if errors.As(err, &errs) {
				render.ValidationErrors(w, errs)
				return
			}
			render.Error(w, err)
			return
		}

		file, err := form.File.Open()
		if err != nil {
			render.ServiceError(w, "Could not read uploaded file", http.StatusBadRequest)
			return
		}
		defer file.Close() // nolint:errcheck

		uploaded, err := videos.Upload(r.Context(), p.User, video.UploadParams{
			Title:       form.Title,
			Description: form.Description,
			File:        file,
			Size:        form.File.Size,
			ContentType: form.File.Header.Get("Content-Type"),
			WithDB:      withDB,
		})
		if err != nil {
			if appErr, ok := apperrors.As(err); !ok || render.StatusOf(appErr) >= http.StatusInternalServerError {
				logger.FromContext(r.Context(), l).Error("video upload failed", "title", form.Title, "error", err)
			}
			render.Error(w, err)
			return
		}

		render.JSONWithStatus(w, newVideoResponse(uploaded), http.StatusCreated)
	}
}
