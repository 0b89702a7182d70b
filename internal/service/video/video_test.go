package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/repository"
	"github.com/nkiryanov/urfube/internal/repository/postgres"
	"github.com/nkiryanov/urfube/internal/service/auth"
	"github.com/nkiryanov/urfube/internal/testutil"
)

// Object store kept in memory
type memStore struct {
	objects map[string]string
	putErr  error
	delErr  error
	onPut   func()
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]string)}
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if m.onPut != nil {
		m.onPut()
	}
	if m.putErr != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrS3Client, m.putErr)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = string(data)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.objects, key)
	return nil
}

func upload(title string) UploadParams {
	return UploadParams{
		Title:       title,
		Description: "about " + title,
		File:        strings.NewReader("content of " + title),
		Size:        int64(len("content of " + title)),
		ContentType: "video/mp4",
	}
}

func TestVideo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *VideoService, objects *memStore, storage repository.Storage, alice models.User)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			objects := newMemStore()

			alice, err := storage.User().CreateUser(t.Context(), "alice", "hash")
			require.NoError(t, err)

			fn(NewService(storage, objects, logger.NewNoOpLogger()), objects, storage, alice)
		})
	}

	t.Run("Upload", func(t *testing.T) {
		t.Run("upload ok", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, _ repository.Storage, alice models.User) {
				video, err := s.Upload(t.Context(), alice, upload("cats"))

				require.NoError(t, err)
				require.NotZero(t, video.ID)
				require.Equal(t, "cats", video.Title)
				require.Equal(t, "about cats", video.Description)
				require.Equal(t, "alice", video.Author)
				require.Equal(t, alice.ID, video.UserID)
				require.Equal(t, "alice/cats", video.ObjectKey)
				require.Equal(t, "content of cats", objects.objects["alice/cats"])
			})
		})

		t.Run("duplicate title", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, storage repository.Storage, alice models.User) {
				_, err := s.Upload(t.Context(), alice, upload("cats"))
				require.NoError(t, err)

				bob, err := storage.User().CreateUser(t.Context(), "bob", "hash")
				require.NoError(t, err)

				_, err = s.Upload(t.Context(), bob, upload("Cats"))

				require.ErrorIs(t, err, apperrors.ErrVideoAlreadyExists)
				require.NotContains(t, objects.objects, "bob/Cats", "nothing uploaded for duplicate title")
			})
		})

		t.Run("object store failure", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, storage repository.Storage, alice models.User) {
				objects.putErr = errors.New("access denied")

				_, err := s.Upload(t.Context(), alice, upload("cats"))

				require.ErrorIs(t, err, apperrors.ErrVideoUploadFailed)
				require.ErrorIs(t, err, apperrors.ErrS3Client, "cause has to be kept")

				_, err = storage.Video().GetVideoByTitle(t.Context(), "cats")
				require.ErrorIs(t, err, apperrors.ErrVideoNotFound, "video must not be registered")
			})
		})
		t.Run("storage steps run in runner, file is sent outside", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, _ repository.Storage, alice models.User) {
				var steps []string
				inRunner := false
				objects.onPut = func() {
					require.False(t, inRunner, "file must be sent with no connection held")
					steps = append(steps, "put")
				}
				p := upload("cats")
				p.WithDB = func(ctx context.Context, fn func(ctx context.Context) error) error {
					inRunner = true
					defer func() { inRunner = false }()
					steps = append(steps, "db")
					return fn(ctx)
				}

				video, err := s.Upload(t.Context(), alice, p)

				require.NoError(t, err)
				require.Equal(t, "cats", video.Title)
				require.Equal(t, []string{"db", "put", "db"}, steps)
			})
		})

		t.Run("runner failure stops upload", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, _ repository.Storage, alice models.User) {
				p := upload("cats")
				p.WithDB = func(context.Context, func(context.Context) error) error {
					return apperrors.ErrServiceUnavailable
				}

				_, err := s.Upload(t.Context(), alice, p)

				require.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
				require.Empty(t, objects.objects, "nothing uploaded when database is not reachable")
			})
		})
	})

	t.Run("GetVideo counts views", func(t *testing.T) {
		inTx(t, func(s *VideoService, _ *memStore, _ repository.Storage, alice models.User) {
			created, err := s.Upload(t.Context(), alice, upload("cats"))
			require.NoError(t, err)

			_, err = s.GetVideo(t.Context(), created.ID)
			require.NoError(t, err)
			video, err := s.GetVideo(t.Context(), created.ID)
			require.NoError(t, err)

			require.EqualValues(t, 2, video.Views)

			_, err = s.GetVideo(t.Context(), 99999)
			require.ErrorIs(t, err, apperrors.ErrVideoNotFound)
		})
	})

	t.Run("ListVideos", func(t *testing.T) {
		inTx(t, func(s *VideoService, _ *memStore, _ repository.Storage, alice models.User) {
			for _, title := range []string{"one", "two", "three"} {
				_, err := s.Upload(t.Context(), alice, upload(title))
				require.NoError(t, err)
			}

			videos, err := s.ListVideos(t.Context())

			require.NoError(t, err)
			require.Len(t, videos, 3)
		})
	})

	t.Run("DeleteVideo", func(t *testing.T) {
		t.Run("owner", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, _ repository.Storage, alice models.User) {
				video, err := s.Upload(t.Context(), alice, upload("cats"))
				require.NoError(t, err)

				err = s.DeleteVideo(t.Context(), auth.Principal{User: alice}, video.ID)

				require.NoError(t, err)
				require.Empty(t, objects.objects, "object has to be removed with the video")
				_, err = s.GetVideo(t.Context(), video.ID)
				require.ErrorIs(t, err, apperrors.ErrVideoNotFound)
			})
		})

		t.Run("stranger", func(t *testing.T) {
			inTx(t, func(s *VideoService, _ *memStore, storage repository.Storage, alice models.User) {
				video, err := s.Upload(t.Context(), alice, upload("cats"))
				require.NoError(t, err)
				bob, err := storage.User().CreateUser(t.Context(), "bob", "hash")
				require.NoError(t, err)

				err = s.DeleteVideo(t.Context(), auth.Principal{User: bob}, video.ID)

				require.ErrorIs(t, err, apperrors.ErrPermission)
			})
		})

		t.Run("admin", func(t *testing.T) {
			inTx(t, func(s *VideoService, _ *memStore, storage repository.Storage, alice models.User) {
				video, err := s.Upload(t.Context(), alice, upload("cats"))
				require.NoError(t, err)
				bob, err := storage.User().CreateUser(t.Context(), "bob", "hash")
				require.NoError(t, err)

				err = s.DeleteVideo(t.Context(), auth.Principal{User: bob, Scopes: []string{auth.ScopeAdmin}}, video.ID)

				require.NoError(t, err)
			})
		})

		t.Run("object store failure does not fail delete", func(t *testing.T) {
			inTx(t, func(s *VideoService, objects *memStore, _ repository.Storage, alice models.User) {
				video, err := s.Upload(t.Context(), alice, upload("cats"))
				require.NoError(t, err)
				objects.delErr = errors.New("timeout")

				err = s.DeleteVideo(t.Context(), auth.Principal{User: alice}, video.ID)

				require.NoError(t, err)
			})
		})

		t.Run("not found", func(t *testing.T) {
			inTx(t, func(s *VideoService, _ *memStore, _ repository.Storage, alice models.User) {
				err := s.DeleteVideo(t.Context(), auth.Principal{User: alice}, 99999)

				require.ErrorIs(t, err, apperrors.ErrVideoNotFound)
			})
		})
	})

	t.Run("History", func(t *testing.T) {
		inTx(t, func(s *VideoService, _ *memStore, _ repository.Storage, alice models.User) {
			video, err := s.Upload(t.Context(), alice, upload("cats"))
			require.NoError(t, err)

			_, err = s.AddOrUpdateHistory(t.Context(), alice, models.History{
				UserID:    42, // ignored, history always belongs to the caller
				VideoID:   video.ID,
				Timestamp: decimal.NewFromInt(15),
				Length:    decimal.NewFromInt(60),
			})
			require.NoError(t, err)

			entries, err := s.GetUserHistory(t.Context(), alice)

			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.Equal(t, alice.ID, entries[0].UserID)
			require.Equal(t, "cats", entries[0].Title)
			require.True(t, entries[0].Progress().Equal(decimal.RequireFromString("0.25")))
		})
	})
}
