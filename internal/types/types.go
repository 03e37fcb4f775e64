// Package types provides common type definitions for the creator sync system.
package types

import "fmt"

// Platform represents a supported social-media platform
type Platform string

const (
	// PlatformTikTok represents TikTok
	PlatformTikTok Platform = "tiktok"
	// PlatformInstagram represents Instagram
	PlatformInstagram Platform = "instagram"
	// PlatformYouTube represents YouTube
	PlatformYouTube Platform = "youtube"
	// PlatformTwitter represents Twitter / X
	PlatformTwitter Platform = "twitter"
)

// AllPlatforms lists every platform the sync engine knows how to fetch
var AllPlatforms = []Platform{PlatformTikTok, PlatformInstagram, PlatformYouTube, PlatformTwitter}

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	for _, p := range AllPlatforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported platform: %q", s)
}

// CreatorType controls whether an account is discovered automatically
type CreatorType string

const (
	// CreatorAutomatic accounts get new content discovered on every sync
	CreatorAutomatic CreatorType = "automatic"
	// CreatorStatic accounts only track videos added by hand
	CreatorStatic CreatorType = "static"
)

// SyncStatus represents the sync state of a tracked account
type SyncStatus string

const (
	SyncIdle      SyncStatus = "idle"
	SyncSyncing   SyncStatus = "syncing"
	SyncCompleted SyncStatus = "completed"
	SyncError     SyncStatus = "error"
)

// CaptureTrigger records why a metrics snapshot was taken
type CaptureTrigger string

const (
	// CapturedInitialSync is the first snapshot ever taken of a video
	CapturedInitialSync CaptureTrigger = "initial_sync"
	// CapturedManualRefresh is a refresh started by a user
	CapturedManualRefresh CaptureTrigger = "manual_refresh"
	// CapturedScheduledRefresh is a refresh started by the scheduler
	CapturedScheduledRefresh CaptureTrigger = "scheduled_refresh"
)

// TriggerOrigin identifies who started a sync run
type TriggerOrigin string

const (
	OriginUser      TriggerOrigin = "user"
	OriginScheduler TriggerOrigin = "scheduler"
)

// RefreshTrigger maps a run origin to the capture tag used for refresh snapshots
func (o TriggerOrigin) RefreshTrigger() CaptureTrigger {
	if o == OriginScheduler {
		return CapturedScheduledRefresh
	}
	return CapturedManualRefresh
}

// VideoStatus is the lifecycle state of a catalog video
type VideoStatus string

const (
	VideoActive   VideoStatus = "active"
	VideoArchived VideoStatus = "archived"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
