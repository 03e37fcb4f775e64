package models

import (
	"time"

	"github.com/creator-sync/internal/types"
)

// ErrorEventType is the event type emitted when an account sync fails
const ErrorEventType = "account_sync_error"

// ErrorEvent is the structured payload sent to the error-notification sink
type ErrorEvent struct {
	Type          string         `json:"type"`
	Platform      types.Platform `json:"platform"`
	AccountID     string         `json:"accountId"`
	Username      string         `json:"username"`
	Message       string         `json:"message"`
	Stack         string         `json:"stack,omitempty"`
	OrgID         string         `json:"orgId"`
	ProjectID     string         `json:"projectId"`
	Timestamp     time.Time      `json:"timestamp"`
	AttemptNumber int            `json:"attemptNumber"`
}
