package postgres

import (
	"context"
	"fmt"

	"github.com/nkiryanov/urfube/internal/apperrors"
)

type LikeRepo struct {
	DB DBTX
}

const addLike = `-- name: AddLike
INSERT INTO likes (user_id, video_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

func (r *LikeRepo) AddLike(ctx context.Context, userID int64, videoID int64) error {
	_, err := r.DB.Exec(ctx, addLike, userID, videoID)

	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return apperrors.ErrVideoNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const removeLike = `-- name: RemoveLike
DELETE FROM likes
WHERE user_id = $1 AND video_id = $2
`

func (r *LikeRepo) RemoveLike(ctx context.Context, userID int64, videoID int64) error {
	_, err := r.DB.Exec(ctx, removeLike, userID, videoID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const likeExists = `-- name: LikeExists
SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND video_id = $2)
`

func (r *LikeRepo) Exists(ctx context.Context, userID int64, videoID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, likeExists, userID, videoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

const countLikes = `-- name: CountLikes
SELECT count(*) FROM likes
WHERE video_id = $1
`

func (r *LikeRepo) CountByVideo(ctx context.Context, videoID int64) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, countLikes, videoID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
