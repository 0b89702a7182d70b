package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/repository"
	"github.com/nkiryanov/urfube/internal/service/auth"
)

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

func (s *UserService) CreateUser(ctx context.Context, username string, password string) (models.User, error) {
	var user models.User
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, username, hash)
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Login checks username and password
// Unknown user and wrong password are the same apperrors.ErrWrongUserInfo
func (s *UserService) Login(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, apperrors.ErrWrongUserInfo
	case err != nil:
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrWrongUserInfo
	}

	return user, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.storage.User().GetUserByUsername(ctx, username)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.storage.User().ListUsers(ctx)
}

// Subscribe subscriber to channel and return channel subscribers count
func (s *UserService) Subscribe(ctx context.Context, subscriber models.User, channel string) (int64, error) {
	var count int64

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		owner, err := storage.User().GetUserByUsername(ctx, channel)
		if err != nil {
			return err
		}
		if owner.ID == subscriber.ID {
			return apperrors.ErrSelfSubscription
		}

		if err := storage.Subscription().Subscribe(ctx, subscriber.ID, owner.ID); err != nil {
			return err
		}

		count, err = storage.Subscription().CountSubscribers(ctx, owner.ID)
		return err
	})

	return count, err
}

// Unsubscribe subscriber from channel and return channel subscribers count
func (s *UserService) Unsubscribe(ctx context.Context, subscriber models.User, channel string) (int64, error) {
	var count int64

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		owner, err := storage.User().GetUserByUsername(ctx, channel)
		if err != nil {
			return err
		}

		if err := storage.Subscription().Unsubscribe(ctx, subscriber.ID, owner.ID); err != nil {
			return err
		}

		count, err = storage.Subscription().CountSubscribers(ctx, owner.ID)
		return err
	})

	return count, err
}

func (s *UserService) IsSubscribed(ctx context.Context, subscriber models.User, channel string) (bool, error) {
	owner, err := s.storage.User().GetUserByUsername(ctx, channel)
	if err != nil {
		return false, err
	}

	return s.storage.Subscription().Exists(ctx, subscriber.ID, owner.ID)
}

// ChannelInfo summarises user's channel: subscribers and uploaded videos
func (s *UserService) ChannelInfo(ctx context.Context, channel string) (models.ChannelInfo, error) {
	var info models.ChannelInfo

	owner, err := s.storage.User().GetUserByUsername(ctx, channel)
	if err != nil {
		return info, err
	}

	subscribers, err := s.storage.Subscription().CountSubscribers(ctx, owner.ID)
	if err != nil {
		return info, err
	}

	videos, err := s.storage.Video().CountByUser(ctx, owner.ID)
	if err != nil {
		return info, err
	}

	return models.ChannelInfo{Channel: owner.Username, Subscribers: subscribers, Videos: videos}, nil
}
