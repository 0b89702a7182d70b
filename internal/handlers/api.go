package handlers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/urfube/internal/handlers/jsonrpc"
	"github.com/nkiryanov/urfube/internal/handlers/userctx"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/service/auth"
)

type credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type signupParams struct {
	User credentials `json:"user"`
}

type loginParams struct {
	User   credentials `json:"user"`
	Scopes []string    `json:"scopes" validate:"dive,required"`
}

type refreshParams struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type videoParams struct {
	VideoID int64 `json:"video_id" validate:"gt=0"`
}

// Bounds follow NUMERIC(12,3) columns of history table
type historyParams struct {
	Video struct {
		VideoID   int64           `json:"video_id" validate:"gt=0"`
		Timestamp decimal.Decimal `json:"timestamp" validate:"gte=0,lte=999999999.999"`
		Length    decimal.Decimal `json:"length" validate:"gt=0,lte=999999999.999"`
	} `json:"video"`
}

type addCommentParams struct {
	Comment struct {
		Content string `json:"content" validate:"required,max=2000"`
		VideoID int64  `json:"video_id" validate:"gt=0"`
	} `json:"comment"`
}

type editCommentParams struct {
	CommentID int64  `json:"comment_id" validate:"gt=0"`
	Content   string `json:"content" validate:"required,max=2000"`
}

type commentParams struct {
	CommentID int64 `json:"comment_id" validate:"gt=0"`
}

type channelParams struct {
	Channel string `json:"channel" validate:"required,max=64"`
}

type noParams struct{}

var errNoPrincipal = errors.New("method requires principal but context has none")

func principalFrom(ctx context.Context) (auth.Principal, error) {
	p, ok := userctx.FromContext(ctx)
	if !ok {
		return auth.Principal{}, errNoPrincipal
	}
	return p, nil
}

// registerAPI binds every public procedure to its service
func registerAPI(s *jsonrpc.Server, svc Services) {
	register := func(name string, needAuth bool, h jsonrpc.HandlerFunc, scopes ...string) {
		s.Register(name, jsonrpc.Method{Handler: h, Auth: needAuth, Scopes: scopes})
	}

	// Accounts and tokens
	register("signup", false, jsonrpc.Handle(func(ctx context.Context, p signupParams) (string, error) {
		user, err := svc.Users.CreateUser(ctx, p.User.Username, p.User.Password)
		return user.Username, err
	}))
	register("login", false, jsonrpc.Handle(func(ctx context.Context, p loginParams) (tokenResponse, error) {
		user, err := svc.Users.Login(ctx, p.User.Username, p.User.Password)
		if err != nil {
			return tokenResponse{}, err
		}
		pair, err := svc.Auth.IssueTokens(user, p.Scopes)
		if err != nil {
			return tokenResponse{}, err
		}
		return newTokenResponse(pair), nil
	}))
	register("refresh_tokens", false, jsonrpc.Handle(func(ctx context.Context, p refreshParams) (tokenResponse, error) {
		pair, err := svc.Auth.Refresh(ctx, p.RefreshToken)
		if err != nil {
			return tokenResponse{}, err
		}
		return newTokenResponse(pair), nil
	}))
	register("get_me", true, jsonrpc.Handle(func(ctx context.Context, _ noParams) (userResponse, error) {
		p, err := principalFrom(ctx)
		return newUserResponse(p.User), err
	}))
	register("get_users", true, jsonrpc.Handle(func(ctx context.Context, _ noParams) ([]userResponse, error) {
		users, err := svc.Users.ListUsers(ctx)
		return mapSlice(users, newUserResponse), err
	}), auth.ScopeAdmin)

	// Videos and watch history
	register("get_videos", false, jsonrpc.Handle(func(ctx context.Context, _ noParams) ([]videoResponse, error) {
		videos, err := svc.Videos.ListVideos(ctx)
		return mapSlice(videos, newVideoResponse), err
	}))
	register("get_video", false, jsonrpc.Handle(func(ctx context.Context, p videoParams) (videoResponse, error) {
		video, err := svc.Videos.GetVideo(ctx, p.VideoID)
		return newVideoResponse(video), err
	}))
	register("delete_video", true, jsonrpc.Handle(func(ctx context.Context, p videoParams) (bool, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return false, err
		}
		if err := svc.Videos.DeleteVideo(ctx, principal, p.VideoID); err != nil {
			return false, err
		}
		return true, nil
	}))
	register("add_or_update_history", true, jsonrpc.Handle(func(ctx context.Context, p historyParams) (historyResponse, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return historyResponse{}, err
		}
		h, err := svc.Videos.AddOrUpdateHistory(ctx, principal.User, models.History{
			VideoID:   p.Video.VideoID,
			Timestamp: p.Video.Timestamp,
			Length:    p.Video.Length,
		})
		return newHistoryResponse(h), err
	}))
	register("get_user_history", true, jsonrpc.Handle(func(ctx context.Context, _ noParams) ([]historyEntryResponse, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return nil, err
		}
		entries, err := svc.Videos.GetUserHistory(ctx, principal.User)
		return mapSlice(entries, newHistoryEntryResponse), err
	}))

	// Comments
	register("add_comment", true, jsonrpc.Handle(func(ctx context.Context, p addCommentParams) (commentResponse, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return commentResponse{}, err
		}
		c, err := svc.Engagement.AddComment(ctx, principal.User, p.Comment.VideoID, p.Comment.Content)
		return newCommentResponse(c), err
	}))
	register("edit_comment", true, jsonrpc.Handle(func(ctx context.Context, p editCommentParams) (commentResponse, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return commentResponse{}, err
		}
		c, err := svc.Engagement.EditComment(ctx, principal.User, p.CommentID, p.Content)
		return newCommentResponse(c), err
	}))
	register("delete_comment", true, jsonrpc.Handle(func(ctx context.Context, p commentParams) (bool, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return false, err
		}
		if err := svc.Engagement.DeleteComment(ctx, principal.User, p.CommentID); err != nil {
			return false, err
		}
		return true, nil
	}))
	register("get_comments", false, jsonrpc.Handle(func(ctx context.Context, p videoParams) ([]commentResponse, error) {
		comments, err := svc.Engagement.ListComments(ctx, p.VideoID)
		return mapSlice(comments, newCommentResponse), err
	}))

	// Likes
	register("add_like", true, jsonrpc.Handle(func(ctx context.Context, p videoParams) (int64, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return 0, err
		}
		return svc.Engagement.AddLike(ctx, principal.User, p.VideoID)
	}))
	register("remove_like", true, jsonrpc.Handle(func(ctx context.Context, p videoParams) (int64, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return 0, err
		}
		return svc.Engagement.RemoveLike(ctx, principal.User, p.VideoID)
	}))
	register("user_liked_video", true, jsonrpc.Handle(func(ctx context.Context, p videoParams) (bool, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return false, err
		}
		return svc.Engagement.UserLikedVideo(ctx, principal.User, p.VideoID)
	}))
	register("get_likes", false, jsonrpc.Handle(func(ctx context.Context, p videoParams) (int64, error) {
		return svc.Engagement.GetLikes(ctx, p.VideoID)
	}))

	// Channels
	register("subscribe", true, jsonrpc.Handle(func(ctx context.Context, p channelParams) (int64, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return 0, err
		}
		return svc.Users.Subscribe(ctx, principal.User, p.Channel)
	}))
	register("unsubscribe", true, jsonrpc.Handle(func(ctx context.Context, p channelParams) (int64, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return 0, err
		}
		return svc.Users.Unsubscribe(ctx, principal.User, p.Channel)
	}))
	register("is_subscribed", true, jsonrpc.Handle(func(ctx context.Context, p channelParams) (bool, error) {
		principal, err := principalFrom(ctx)
		if err != nil {
			return false, err
		}
		return svc.Users.IsSubscribed(ctx, principal.User, p.Channel)
	}))
	register("get_channel_info", false, jsonrpc.Handle(func(ctx context.Context, p channelParams) (channelResponse, error) {
		info, err := svc.Users.ChannelInfo(ctx, p.Channel)
		return channelResponse{Channel: info.Channel, Subscribers: info.Subscribers, Videos: info.Videos}, err
	}))
}
