package models

import (
	"time"

	"github.com/creator-sync/internal/types"
)

// Snapshot is an immutable point-in-time copy of a video's metrics.
// Snapshots are append-only and ordered by CapturedAt.
type Snapshot struct {
	ID                string               `json:"id" db:"id" ch:"id"`
	Scope             Scope                `json:"scope"`
	AccountID         string               `json:"accountId" db:"account_id" ch:"account_id"`
	VideoID           string               `json:"videoId" db:"video_id" ch:"video_id"`
	Platform          types.Platform       `json:"platform" db:"platform" ch:"platform"`
	Metrics           Metrics              `json:"metrics"`
	CapturedAt        time.Time            `json:"capturedAt" db:"captured_at" ch:"captured_at"`
	IsInitialSnapshot bool                 `json:"isInitialSnapshot" db:"is_initial_snapshot" ch:"is_initial_snapshot"`
	CapturedBy        types.CaptureTrigger `json:"capturedBy" db:"captured_by" ch:"captured_by"`
}

// RecentActivity is the per-account projection of a video, keyed by VideoID.
// Writes merge into the existing row and never blank out populated fields.
type RecentActivity struct {
	Scope       Scope          `json:"scope"`
	AccountID   string         `json:"accountId" db:"account_id"`
	VideoID     string         `json:"videoId" db:"video_id"`
	Platform    types.Platform `json:"platform" db:"platform"`
	VideoURL    string         `json:"videoUrl,omitempty" db:"video_url"`
	Caption     string         `json:"caption,omitempty" db:"caption"`
	Thumbnail   string         `json:"thumbnail,omitempty" db:"thumbnail"`
	UploadDate  *time.Time     `json:"uploadDate,omitempty" db:"upload_date"`
	Metrics     Metrics        `json:"metrics"`
	LastUpdated time.Time      `json:"lastUpdated" db:"last_updated"`
}
