package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/handlers/jsonrpc"
	"github.com/nkiryanov/urfube/internal/handlers/middleware"
	"github.com/nkiryanov/urfube/internal/handlers/render"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/service/auth"
	"github.com/nkiryanov/urfube/internal/service/video"
)

// Services used by HTTP surface
type Services struct {
	Auth       authService
	Users      userService
	Videos     videoService
	Engagement engagementService
}

// NewRouter builds the whole HTTP surface
// Every route that touches the database runs inside its own connection scope
// Upload holds a connection only around its storage steps, never while the file is read or sent
func NewRouter(svc Services, acq db.Acquirer, l logger.Logger) http.Handler {
	rpc := jsonrpc.NewServer(svc.Auth, l)
	registerAPI(rpc, svc)

	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		middleware.LoggerMiddleware(l),
		chimiddleware.Recoverer,
	)

	r.With(middleware.ConnectionScope(acq, l, render.Error)).
		Get("/health", handleHealth(db.Scoped{}))

	r.With(middleware.ConnectionScope(acq, l, jsonrpc.WriteUnavailable)).
		Post("/api", rpc.ServeHTTP)

	r.With(middleware.AuthMiddleware(acq, svc.Auth, l)).
		Post("/upload_file", handleUpload(svc.Videos, acq, l))

	return r
}

type authService interface {
	// Read raw access token from request headers
	TokenFromRequest(r *http.Request) string

	// Resolve access token to principal
	// Has to return apperrors.ErrAuth if token is empty, ErrCredentials or ErrExpiration if it is not valid
	Authenticate(ctx context.Context, raw string) (auth.Principal, error)

	// Has to return apperrors.ErrPermission if any of required scopes is not granted
	Authorize(p auth.Principal, required ...string) (models.User, error)

	IssueTokens(user models.User, scopes []string) (models.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)
}

type userService interface {
	CreateUser(ctx context.Context, username string, password string) (models.User, error)

	// Has to return apperrors.ErrWrongUserInfo if user not found or password does not match
	Login(ctx context.Context, username string, password string) (models.User, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	Subscribe(ctx context.Context, subscriber models.User, channel string) (int64, error)
	Unsubscribe(ctx context.Context, subscriber models.User, channel string) (int64, error)
	IsSubscribed(ctx context.Context, subscriber models.User, channel string) (bool, error)
	ChannelInfo(ctx context.Context, channel string) (models.ChannelInfo, error)
}

type videoService interface {
	Upload(ctx context.Context, user models.User, p video.UploadParams) (models.Video, error)
	ListVideos(ctx context.Context) ([]models.Video, error)
	GetVideo(ctx context.Context, videoID int64) (models.Video, error)
	DeleteVideo(ctx context.Context, p auth.Principal, videoID int64) error
	AddOrUpdateHistory(ctx context.Context, user models.User, h models.History) (models.History, error)
	GetUserHistory(ctx context.Context, user models.User) ([]models.HistoryEntry, error)
}

type engagementService interface {
	AddComment(ctx context.Context, user models.User, videoID int64, content string) (models.Comment, error)
	EditComment(ctx context.Context, user models.User, commentID int64, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, user models.User, commentID int64) error
	ListComments(ctx context.Context, videoID int64) ([]models.Comment, error)
	AddLike(ctx context.Context, user models.User, videoID int64) (int64, error)
	RemoveLike(ctx context.Context, user models.User, videoID int64) (int64, error)
	UserLikedVideo(ctx context.Context, user models.User, videoID int64) (bool, error)
	GetLikes(ctx context.Context, videoID int64) (int64, error)
}
