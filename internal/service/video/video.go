package video

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/repository"
	"github.com/nkiryanov/urfube/internal/service/auth"
)

// Where uploaded files are kept
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Runner gives fn access to the database for the duration of the call
type Runner func(ctx context.Context, fn func(ctx context.Context) error) error

type UploadParams struct {
	Title       string
	Description string

	File        io.Reader
	Size        int64 // -1 if unknown
	ContentType string

	// Wraps every storage step of the upload so no connection is held while the file is sent
	// nil runs storage calls on ctx as is
	WithDB Runner
}

func (p UploadParams) withDB(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.WithDB == nil {
		return fn(ctx)
	}
	return p.WithDB(ctx, fn)
}

type VideoService struct {
	storage repository.Storage
	objects ObjectStore
	logger  logger.Logger
}

func NewService(storage repository.Storage, objects ObjectStore, l logger.Logger) *VideoService {
	return &VideoService{
		storage: storage,
		objects: objects,
		logger:  l,
	}
}

// Key of the uploaded file in object store
func ObjectKey(username string, title string) string {
	return username + "/" + title
}

// Upload stores file in object store first and registers the video after
// Title is unique case insensitive across all users
func (s *VideoService) Upload(ctx context.Context, user models.User, p UploadParams) (models.Video, error) {
	err := p.withDB(ctx, func(ctx context.Context) error {
		_, err := s.storage.Video().GetVideoByTitle(ctx, p.Title)
		switch {
		case err == nil:
			return apperrors.ErrVideoAlreadyExists
		case errors.Is(err, apperrors.ErrVideoNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return models.Video{}, err
	}

	key := ObjectKey(user.Username, p.Title)
	if err := s.objects.Put(ctx, key, p.File, p.Size, p.ContentType); err != nil {
		return models.Video{}, fmt.Errorf("%w: %w", apperrors.ErrVideoUploadFailed, err)
	}

	var video models.Video
	err = p.withDB(ctx, func(ctx context.Context) error {
		var err error
		video, err = s.storage.Video().CreateVideo(ctx, repository.CreateVideoParams{
			Title:       p.Title,
			Description: p.Description,
			Author:      user.Username,
			UserID:      user.ID,
			ObjectKey:   key,
		})
		return err
	})
	switch {
	case err == nil:
		return video, nil
	case errors.Is(err, apperrors.ErrVideoAlreadyExists):
		// Title taken concurrently; object under the key may belong to the winner, keep it
		return video, err
	default:
		s.removeObject(ctx, key)
		return video, err
	}
}

func (s *VideoService) ListVideos(ctx context.Context) ([]models.Video, error) {
	return s.storage.Video().ListVideos(ctx)
}

// GetVideo returns video and counts one more view
func (s *VideoService) GetVideo(ctx context.Context, videoID int64) (models.Video, error) {
	return s.storage.Video().IncrementViews(ctx, videoID)
}

// DeleteVideo is allowed to video owner and to admins
func (s *VideoService) DeleteVideo(ctx context.Context, p auth.Principal, videoID int64) error {
	video, err := s.storage.Video().GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}

	if video.UserID != p.User.ID && !p.HasScopes(auth.ScopeAdmin) {
		return apperrors.ErrPermission
	}

	if err := s.storage.Video().DeleteVideo(ctx, videoID); err != nil {
		return err
	}

	s.removeObject(ctx, video.ObjectKey)
	return nil
}

// Object removal never fails the request, the row is the source of truth
func (s *VideoService) removeObject(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		logger.FromContext(ctx, s.logger).Warn("object left in storage", "key", key, "error", err)
	}
}

func (s *VideoService) AddOrUpdateHistory(ctx context.Context, user models.User, h models.History) (models.History, error) {
	h.UserID = user.ID
	return s.storage.History().Upsert(ctx, h)
}

func (s *VideoService) GetUserHistory(ctx context.Context, user models.User) ([]models.HistoryEntry, error) {
	return s.storage.History().ListByUser(ctx, user.ID)
}
