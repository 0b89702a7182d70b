package models

import (
	"time"
)

type Comment struct {
	ID        int64
	CreatedAt time.Time
	Content   string
	UserID    int64
	VideoID   int64
	Author    string // username of the comment author
}

type ChannelInfo struct {
	Channel     string
	Subscribers int64
	Videos      int64
}
