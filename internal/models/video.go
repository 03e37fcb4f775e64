package models

import (
	"time"

	"github.com/creator-sync/internal/types"
)

// Metrics is the engagement vector of a video. Values are cumulative totals.
type Metrics struct {
	Views    int64 `json:"views" db:"views" ch:"views"`
	Likes    int64 `json:"likes" db:"likes" ch:"likes"`
	Comments int64 `json:"comments" db:"comments" ch:"comments"`
	Shares   int64 `json:"shares" db:"shares" ch:"shares"`
	Saves    int64 `json:"saves" db:"saves" ch:"saves"`
}

// VideoRecord is a catalog entry for one piece of platform content.
// (VideoID, Platform) is unique within a scope.
type VideoRecord struct {
	ID         string         `json:"id" db:"id"`
	Scope      Scope          `json:"scope"`
	AccountID  string         `json:"accountId" db:"account_id"`
	VideoID    string         `json:"videoId" db:"video_id"`
	Platform   types.Platform `json:"platform" db:"platform"`
	VideoURL   string         `json:"videoUrl" db:"video_url"`
	Caption    string         `json:"caption" db:"caption"`
	Thumbnail  string         `json:"thumbnail" db:"thumbnail"` // durable URL only
	UploadDate time.Time      `json:"uploadDate" db:"upload_date"`
	Duration   int            `json:"duration" db:"duration"` // seconds
	Metrics    Metrics        `json:"metrics"`

	DateAdded     time.Time         `json:"dateAdded" db:"date_added"`
	Status        types.VideoStatus `json:"status" db:"status"`
	IsRead        bool              `json:"isRead" db:"is_read"`
	LastRefreshed *time.Time        `json:"lastRefreshed,omitempty" db:"last_refreshed"`

	// RemoteThumbnailURL is the provider's thumbnail, never persisted
	RemoteThumbnailURL string `json:"-" db:"-"`
}

// Key identifies a video inside a scope
func (v *VideoRecord) Key() VideoKey {
	return VideoKey{AccountID: v.AccountID, Platform: v.Platform, VideoID: v.VideoID}
}

// VideoKey is the identity of a record: (platform, videoId) within an account
type VideoKey struct {
	AccountID string
	Platform  types.Platform
	VideoID   string
}
