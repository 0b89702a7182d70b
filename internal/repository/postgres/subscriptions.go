package postgres

import (
	"context"
	"fmt"

	"github.com/nkiryanov/urfube/internal/apperrors"
)

type SubscriptionRepo struct {
	DB DBTX
}

const subscribe = `-- name: Subscribe
INSERT INTO subscriptions (subscriber_id, channel_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

func (r *SubscriptionRepo) Subscribe(ctx context.Context, subscriberID int64, channelID int64) error {
	_, err := r.DB.Exec(ctx, subscribe, subscriberID, channelID)

	switch {
	case err == nil:
		return nil
	case isCheckViolation(err):
		return apperrors.ErrSelfSubscription
	case isForeignKeyViolation(err):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const unsubscribe = `-- name: Unsubscribe
DELETE FROM subscriptions
WHERE subscriber_id = $1 AND channel_id = $2
`

func (r *SubscriptionRepo) Unsubscribe(ctx context.Context, subscriberID int64, channelID int64) error {
	_, err := r.DB.Exec(ctx, unsubscribe, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const subscriptionExists = `-- name: SubscriptionExists
SELECT EXISTS (SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2)
`

func (r *SubscriptionRepo) Exists(ctx context.Context, subscriberID int64, channelID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, subscriptionExists, subscriberID, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

const countSubscribers = `-- name: CountSubscribers
SELECT count(*) FROM subscriptions
WHERE channel_id = $1
`

func (r *SubscriptionRepo) CountSubscribers(ctx context.Context, channelID int64) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, countSubscribers, channelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
