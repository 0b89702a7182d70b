package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
)

type CommentRepo struct {
	DB DBTX
}

// Author is resolved with a join, so every query returns the same column set
const createComment = `-- name: CreateComment
WITH c AS (
	INSERT INTO comments (content, user_id, video_id)
	VALUES ($1, $2, $3)
	RETURNING id, created_at, content, user_id, video_id
)
SELECT c.id, c.created_at, c.content, c.user_id, c.video_id, u.username
FROM c JOIN users u ON u.id = c.user_id
`

func (r *CommentRepo) CreateComment(ctx context.Context, userID int64, videoID int64, content string) (models.Comment, error) {
	rows, err := r.DB.Query(ctx, createComment, content, userID, videoID)
	comment, err := collectOne(rows, err, rowToComment)

	switch {
	case err == nil:
		return comment, nil
	case isForeignKeyViolation(err):
		return comment, apperrors.ErrVideoNotFound
	default:
		return comment, fmt.Errorf("db error: %w", err)
	}
}

const getComment = `-- name: GetComment
SELECT c.id, c.created_at, c.content, c.user_id, c.video_id, u.username
FROM comments c JOIN users u ON u.id = c.user_id
WHERE c.id = $1
`

func (r *CommentRepo) GetComment(ctx context.Context, commentID int64) (models.Comment, error) {
	rows, err := r.DB.Query(ctx, getComment, commentID)
	return oneComment(rows, err)
}

const updateCommentContent = `-- name: UpdateCommentContent
WITH c AS (
	UPDATE comments SET content = $2
	WHERE id = $1
	RETURNING id, created_at, content, user_id, video_id
)
SELECT c.id, c.created_at, c.content, c.user_id, c.video_id, u.username
FROM c JOIN users u ON u.id = c.user_id
`

func (r *CommentRepo) UpdateContent(ctx context.Context, commentID int64, content string) (models.Comment, error) {
	rows, err := r.DB.Query(ctx, updateCommentContent, commentID, content)
	return oneComment(rows, err)
}

const deleteComment = `-- name: DeleteComment
DELETE FROM comments
WHERE id = $1
`

func (r *CommentRepo) DeleteComment(ctx context.Context, commentID int64) error {
	tag, err := r.DB.Exec(ctx, deleteComment, commentID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrCommentNotFound
	default:
		return nil
	}
}

const listCommentsByVideo = `-- name: ListCommentsByVideo
SELECT c.id, c.created_at, c.content, c.user_id, c.video_id, u.username
FROM comments c JOIN users u ON u.id = c.user_id
WHERE c.video_id = $1
ORDER BY c.created_at, c.id
`

func (r *CommentRepo) ListByVideo(ctx context.Context, videoID int64) ([]models.Comment, error) {
	rows, err := r.DB.Query(ctx, listCommentsByVideo, videoID)
	comments, err := collectAll(rows, err, rowToComment)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return comments, nil
}

func oneComment(rows pgx.Rows, err error) (models.Comment, error) {
	comment, err := collectOne(rows, err, rowToComment)

	switch {
	case err == nil:
		return comment, nil
	case errors.Is(err, pgx.ErrNoRows):
		return comment, apperrors.ErrCommentNotFound
	default:
		return comment, fmt.Errorf("db error: %w", err)
	}
}

func rowToComment(row pgx.CollectableRow) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.CreatedAt, &c.Content, &c.UserID, &c.VideoID, &c.Author)
	return c, err
}
