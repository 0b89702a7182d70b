package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Video struct {
	ID          int64
	CreatedAt   time.Time
	Title       string
	Description string
	Author      string
	Views       int64
	UserID      int64
	ObjectKey   string // key of the uploaded file in object storage
}

// Playback position of a user in a video, both values in seconds
type History struct {
	UserID    int64
	VideoID   int64
	Timestamp decimal.Decimal
	Length    decimal.Decimal
	UpdatedAt time.Time
}

// History record joined with the watched video
type HistoryEntry struct {
	History
	Title       string
	Author      string
	Description string
}

// Progress is the watched share of the video in [0, 1]
func (e HistoryEntry) Progress() decimal.Decimal {
	if !e.Length.IsPositive() {
		return decimal.Zero
	}

	p := e.Timestamp.DivRound(e.Length, 4)
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}
