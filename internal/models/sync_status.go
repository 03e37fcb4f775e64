package models

import (
	"time"

	"github.com/creator-sync/internal/types"
)

// SyncProgress is the incremental progress read by polling clients
type SyncProgress struct {
	Current int    `json:"current" db:"sync_progress_current"`
	Total   int    `json:"total" db:"sync_progress_total"`
	Message string `json:"message" db:"sync_progress_message"`
}

// NewSyncProgress builds a progress value out of 100
func NewSyncProgress(current int, message string) SyncProgress {
	return SyncProgress{Current: current, Total: 100, Message: message}
}

// SyncStatusView is the read model served to the polling UI
type SyncStatusView struct {
	AccountID      string           `json:"accountId"`
	Username       string           `json:"username"`
	Platform       types.Platform   `json:"platform"`
	SyncStatus     types.SyncStatus `json:"syncStatus"`
	SyncProgress   SyncProgress     `json:"syncProgress"`
	LastSyncAt     *time.Time       `json:"lastSyncAt,omitempty"`
	LastSyncError  *string          `json:"lastSyncError,omitempty"`
	HasError       bool             `json:"hasError"`
	SyncRetryCount int              `json:"syncRetryCount"`
}

// StatusView projects an account onto the polling read model
func (a *TrackedAccount) StatusView() *SyncStatusView {
	return &SyncStatusView{
		AccountID:      a.ID,
		Username:       a.Username,
		Platform:       a.Platform,
		SyncStatus:     a.SyncStatus,
		SyncProgress:   a.SyncProgress,
		LastSyncAt:     a.LastSyncAt,
		LastSyncError:  a.LastSyncError,
		HasError:       a.HasError,
		SyncRetryCount: a.SyncRetryCount,
	}
}
