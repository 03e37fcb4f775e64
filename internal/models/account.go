// Package models provides data models for the creator sync system.
package models

import (
	"time"

	"github.com/creator-sync/internal/types"
)

// Scope is the tenant boundary of every read and write
type Scope struct {
	OrgID     string `json:"orgId" db:"org_id"`
	ProjectID string `json:"projectId" db:"project_id"`
}

// TrackedAccount represents a creator profile configured for ongoing monitoring.
// It is created by a user and only mutated by the sync engine during or after a run.
type TrackedAccount struct {
	ID             string            `json:"id" db:"id"`
	Scope          Scope             `json:"scope"`
	Platform       types.Platform    `json:"platform" db:"platform"`
	Username       string            `json:"username" db:"username"`
	CreatorType    types.CreatorType `json:"creatorType" db:"creator_type"`
	MaxVideos      int               `json:"maxVideos" db:"max_videos"`
	SyncStatus     types.SyncStatus  `json:"syncStatus" db:"sync_status"`
	SyncProgress   SyncProgress      `json:"syncProgress"`
	LastSyncAt     *time.Time        `json:"lastSyncAt,omitempty" db:"last_sync_at"`
	LastSyncError  *string           `json:"lastSyncError,omitempty" db:"last_sync_error"`
	HasError       bool              `json:"hasError" db:"has_error"`
	SyncRetryCount int               `json:"syncRetryCount" db:"sync_retry_count"`

	// Profile fields
	DisplayName    string `json:"displayName,omitempty" db:"display_name"`
	ProfilePicture string `json:"profilePicture,omitempty" db:"profile_picture"`
	FollowerCount  int64  `json:"followerCount" db:"follower_count"`
	Bio            string `json:"bio,omitempty" db:"bio"`
	IsVerified     bool   `json:"isVerified" db:"is_verified"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsStatic reports whether discovery is disabled for the account
func (a *TrackedAccount) IsStatic() bool {
	return a.CreatorType == types.CreatorStatic
}

// ProfileInfo holds profile fields discovered in provider items.
// AvatarURL is the provider's URL and must be ingested before it is persisted.
type ProfileInfo struct {
	DisplayName   string `json:"displayName,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	FollowerCount int64  `json:"followerCount"`
	Bio           string `json:"bio,omitempty"`
	IsVerified    bool   `json:"isVerified"`
}
