package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
)

type HistoryRepo struct {
	DB DBTX
}

const upsertHistory = `-- name: UpsertHistory
INSERT INTO history (user_id, video_id, timestamp, length, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id, video_id) DO UPDATE
SET timestamp = EXCLUDED.timestamp, length = EXCLUDED.length, updated_at = EXCLUDED.updated_at
RETURNING user_id, video_id, timestamp, length, updated_at
`

func (r *HistoryRepo) Upsert(ctx context.Context, h models.History) (models.History, error) {
	rows, err := r.DB.Query(ctx, upsertHistory, h.UserID, h.VideoID, h.Timestamp, h.Length)
	got, err := collectOne(rows, err, func(row pgx.CollectableRow) (models.History, error) {
		var h models.History
		err := row.Scan(&h.UserID, &h.VideoID, &h.Timestamp, &h.Length, &h.UpdatedAt)
		return h, err
	})

	switch {
	case err == nil:
		return got, nil
	case isForeignKeyViolation(err):
		return got, apperrors.ErrVideoNotFound
	default:
		return got, fmt.Errorf("db error: %w", err)
	}
}

const listHistoryByUser = `-- name: ListHistoryByUser
SELECT h.user_id, h.video_id, h.timestamp, h.length, h.updated_at, v.title, v.author, v.description
FROM history h
JOIN videos v ON v.id = h.video_id
WHERE h.user_id = $1
ORDER BY h.updated_at DESC, h.video_id
`

func (r *HistoryRepo) ListByUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	rows, err := r.DB.Query(ctx, listHistoryByUser, userID)
	entries, err := collectAll(rows, err, func(row pgx.CollectableRow) (models.HistoryEntry, error) {
		var e models.HistoryEntry
		err := row.Scan(&e.UserID, &e.VideoID, &e.Timestamp, &e.Length, &e.UpdatedAt, &e.Title, &e.Author, &e.Description)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}
