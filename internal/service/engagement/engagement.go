package engagement

import (
	"context"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/repository"
)

// Comments and likes of videos
type EngagementService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *EngagementService {
	return &EngagementService{storage: storage}
}

func (s *EngagementService) AddComment(ctx context.Context, user models.User, videoID int64, content string) (models.Comment, error) {
	return s.storage.Comment().CreateComment(ctx, user.ID, videoID, content)
}

// EditComment changes content of the comment, only its author may do it
func (s *EngagementService) EditComment(ctx context.Context, user models.User, commentID int64, content string) (models.Comment, error) {
	var comment models.Comment

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := authorOnly(ctx, storage, user, commentID); err != nil {
			return err
		}

		var err error
		comment, err = storage.Comment().UpdateContent(ctx, commentID, content)
		return err
	})

	return comment, err
}

// DeleteComment removes the comment, only its author may do it
func (s *EngagementService) DeleteComment(ctx context.Context, user models.User, commentID int64) error {
	return s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := authorOnly(ctx, storage, user, commentID); err != nil {
			return err
		}
		return storage.Comment().DeleteComment(ctx, commentID)
	})
}

func authorOnly(ctx context.Context, storage repository.Storage, user models.User, commentID int64) error {
	comment, err := storage.Comment().GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != user.ID {
		return apperrors.ErrPermission
	}
	return nil
}

// ListComments returns video comments oldest first
func (s *EngagementService) ListComments(ctx context.Context, videoID int64) ([]models.Comment, error) {
	if _, err := s.storage.Video().GetVideoByID(ctx, videoID); err != nil {
		return nil, err
	}
	return s.storage.Comment().ListByVideo(ctx, videoID)
}

// AddLike likes the video and returns its likes count
func (s *EngagementService) AddLike(ctx context.Context, user models.User, videoID int64) (int64, error) {
	var count int64

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := storage.Like().AddLike(ctx, user.ID, videoID); err != nil {
			return err
		}

		var err error
		count, err = storage.Like().CountByVideo(ctx, videoID)
		return err
	})

	return count, err
}

// RemoveLike takes the like back and returns likes count
func (s *EngagementService) RemoveLike(ctx context.Context, user models.User, videoID int64) (int64, error) {
	var count int64

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if _, err := storage.Video().GetVideoByID(ctx, videoID); err != nil {
			return err
		}
		if err := storage.Like().RemoveLike(ctx, user.ID, videoID); err != nil {
			return err
		}

		var err error
		count, err = storage.Like().CountByVideo(ctx, videoID)
		return err
	})

	return count, err
}

func (s *EngagementService) UserLikedVideo(ctx context.Context, user models.User, videoID int64) (bool, error) {
	return s.storage.Like().Exists(ctx, user.ID, videoID)
}

func (s *EngagementService) GetLikes(ctx context.Context, videoID int64) (int64, error) {
	if _, err := s.storage.Video().GetVideoByID(ctx, videoID); err != nil {
		return 0, err
	}
	return s.storage.Like().CountByVideo(ctx, videoID)
}
