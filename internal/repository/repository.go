package repository

import (
	"context"

	"github.com/nkiryanov/urfube/internal/models"
)

// Storage gives access to every repository over the same database handle
type Storage interface {
	User() UserRepo
	Video() VideoRepo
	History() HistoryRepo
	Comment() CommentRepo
	Like() LikeRepo
	Subscription() SubscriptionRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the same username (case insensitive) exists has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by its id or username
	// Username is matched case insensitive
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	ListUsers(ctx context.Context) ([]models.User, error)
}

type CreateVideoParams struct {
	Title       string
	Description string
	Author      string
	UserID      int64
	ObjectKey   string
}

type VideoRepo interface {
	// Has to return apperrors.ErrVideoAlreadyExists if title (case insensitive) is taken
	CreateVideo(ctx context.Context, arg CreateVideoParams) (models.Video, error)

	// Getters return apperrors.ErrVideoNotFound if nothing found
	GetVideoByID(ctx context.Context, videoID int64) (models.Video, error)
	GetVideoByTitle(ctx context.Context, title string) (models.Video, error)

	// Newest first
	ListVideos(ctx context.Context) ([]models.Video, error)

	// Add one view and return the updated video
	IncrementViews(ctx context.Context, videoID int64) (models.Video, error)

	DeleteVideo(ctx context.Context, videoID int64) error
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

type HistoryRepo interface {
	// Insert or overwrite playback position of the user in the video
	// Has to return apperrors.ErrVideoNotFound if video does not exist
	Upsert(ctx context.Context, h models.History) (models.History, error)

	// Recently watched first
	ListByUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
}

type CommentRepo interface {
	// Has to return apperrors.ErrVideoNotFound if video does not exist
	CreateComment(ctx context.Context, userID int64, videoID int64, content string) (models.Comment, error)

	// Getters and mutations return apperrors.ErrCommentNotFound if comment does not exist
	GetComment(ctx context.Context, commentID int64) (models.Comment, error)
	UpdateContent(ctx context.Context, commentID int64, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error

	// Oldest first
	ListByVideo(ctx context.Context, videoID int64) ([]models.Comment, error)
}

type LikeRepo interface {
	// Adding existing like is not an error
	// Has to return apperrors.ErrVideoNotFound if video does not exist
	AddLike(ctx context.Context, userID int64, videoID int64) error
	RemoveLike(ctx context.Context, userID int64, videoID int64) error
	Exists(ctx context.Context, userID int64, videoID int64) (bool, error)
	CountByVideo(ctx context.Context, videoID int64) (int64, error)
}

type SubscriptionRepo interface {
	// Subscribing twice is not an error
	// Has to return apperrors.ErrSelfSubscription if subscriber is the channel itself
	Subscribe(ctx context.Context, subscriberID int64, channelID int64) error
	Unsubscribe(ctx context.Context, subscriberID int64, channelID int64) error
	Exists(ctx context.Context, subscriberID int64, channelID int64) (bool, error)
	CountSubscribers(ctx context.Context, channelID int64) (int64, error)
}
