package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/repository"
)

type VideoRepo struct {
	DB DBTX
}

const videoColumns = `id, created_at, title, description, author, views, user_id, object_key`

const createVideo = `-- name: CreateVideo
INSERT INTO videos (title, description, author, user_id, object_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + videoColumns

func (r *VideoRepo) CreateVideo(ctx context.Context, arg repository.CreateVideoParams) (models.Video, error) {
	rows, err := r.DB.Query(ctx, createVideo, arg.Title, arg.Description, arg.Author, arg.UserID, arg.ObjectKey)
	video, err := collectOne(rows, err, rowToVideo)

	switch {
	case err == nil:
		return video, nil
	case isUniqueViolation(err):
		return video, apperrors.ErrVideoAlreadyExists
	case isForeignKeyViolation(err):
		return video, apperrors.ErrUserNotFound
	default:
		return video, fmt.Errorf("db error: %w", err)
	}
}

const getVideoByID = `-- name: GetVideoByID
SELECT ` + videoColumns + ` FROM videos
WHERE id = $1
`

func (r *VideoRepo) GetVideoByID(ctx context.Context, videoID int64) (models.Video, error) {
	rows, err := r.DB.Query(ctx, getVideoByID, videoID)
	return r.oneVideo(rows, err)
}

const getVideoByTitle = `-- name: GetVideoByTitle
SELECT ` + videoColumns + ` FROM videos
WHERE lower(title) = lower($1)
`

func (r *VideoRepo) GetVideoByTitle(ctx context.Context, title string) (models.Video, error) {
	rows, err := r.DB.Query(ctx, getVideoByTitle, title)
	return r.oneVideo(rows, err)
}

const listVideos = `-- name: ListVideos
SELECT ` + videoColumns + ` FROM videos
ORDER BY created_at DESC, id DESC
`

func (r *VideoRepo) ListVideos(ctx context.Context) ([]models.Video, error) {
	rows, err := r.DB.Query(ctx, listVideos)
	videos, err := collectAll(rows, err, rowToVideo)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return videos, nil
}

const incrementViews = `-- name: IncrementViews
UPDATE videos
SET views = views + 1
WHERE id = $1
RETURNING ` + videoColumns

func (r *VideoRepo) IncrementViews(ctx context.Context, videoID int64) (models.Video, error) {
	rows, err := r.DB.Query(ctx, incrementViews, videoID)
	return r.oneVideo(rows, err)
}

const deleteVideo = `-- name: DeleteVideo
DELETE FROM videos
WHERE id = $1
`

func (r *VideoRepo) DeleteVideo(ctx context.Context, videoID int64) error {
	tag, err := r.DB.Exec(ctx, deleteVideo, videoID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrVideoNotFound
	default:
		return nil
	}
}

const countVideosByUser = `-- name: CountVideosByUser
SELECT count(*) FROM videos
WHERE user_id = $1
`

func (r *VideoRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, countVideosByUser, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *VideoRepo) oneVideo(rows pgx.Rows, err error) (models.Video, error) {
	video, err := collectOne(rows, err, rowToVideo)

	switch {
	case err == nil:
		return video, nil
	case errors.Is(err, pgx.ErrNoRows):
		return video, apperrors.ErrVideoNotFound
	default:
		return video, fmt.Errorf("db error: %w", err)
	}
}

func rowToVideo(row pgx.CollectableRow) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.CreatedAt, &v.Title, &v.Description, &v.Author, &v.Views, &v.UserID, &v.ObjectKey)
	return v, err
}
