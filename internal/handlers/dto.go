package handlers

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/urfube/internal/models"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(pair models.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    models.TokenTypeBearer,
	}
}

type userResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Created  time.Time `json:"created"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Created: u.CreatedAt}
}

type videoResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	UserID      int64     `json:"user_id"`
	Views       int64     `json:"views"`
	Created     time.Time `json:"created"`
}

func newVideoResponse(v models.Video) videoResponse {
	return videoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Author:      v.Author,
		UserID:      v.UserID,
		Views:       v.Views,
		Created:     v.CreatedAt,
	}
}

// number renders decimal as JSON number, not as quoted string
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type historyResponse struct {
	VideoID   int64       `json:"video_id"`
	Timestamp json.Number `json:"timestamp"`
	Length    json.Number `json:"length"`
	Updated   time.Time   `json:"updated"`
}

func newHistoryResponse(h models.History) historyResponse {
	return historyResponse{
		VideoID:   h.VideoID,
		Timestamp: number(h.Timestamp),
		Length:    number(h.Length),
		Updated:   h.UpdatedAt,
	}
}

type historyEntryResponse struct {
	historyResponse
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Description string      `json:"description"`
	Progress    json.Number `json:"progress"`
}

func newHistoryEntryResponse(e models.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		historyResponse: newHistoryResponse(e.History),
		Title:           e.Title,
		Author:          e.Author,
		Description:     e.Description,
		Progress:        number(e.Progress()),
	}
}

type commentResponse struct {
	ID      int64     `json:"id"`
	Content string    `json:"content"`
	Author  string    `json:"author"`
	UserID  int64     `json:"user_id"`
	VideoID int64     `json:"video_id"`
	Created time.Time `json:"created"`
}

func newCommentResponse(c models.Comment) commentResponse {
	return commentResponse{
		ID:      c.ID,
		Content: c.Content,
		Author:  c.Author,
		UserID:  c.UserID,
		VideoID: c.VideoID,
		Created: c.CreatedAt,
	}
}

type channelResponse struct {
	Channel     string `json:"channel"`
	Subscribers int64  `json:"subscribers"`
	Videos      int64  `json:"videos"`
}

// mapSlice never returns nil so empty lists are rendered as []
func mapSlice[T any, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
