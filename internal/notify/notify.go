// Package notify delivers sync failure events to the error-notification sink.
package notify

import (
	"context"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

// Notifier receives sync error events. Callers never block a run on delivery.
type Notifier interface {
	NotifyError(ctx context.Context, event *models.ErrorEvent) error
}

// LogNotifier writes events to the structured log. Used when no broker is configured.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyError(_ context.Context, event *models.ErrorEvent) error {
	n.logger.WithFields(map[string]interface{}{
		"event":         event.Type,
		"platform":      string(event.Platform),
		"account_id":    event.AccountID,
		"username":      event.Username,
		"org_id":        event.OrgID,
		"project_id":    event.ProjectID,
		"attemptNumber": event.AttemptNumber,
	}).Error(event.Message)
	return nil
}
