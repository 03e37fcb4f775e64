package media

import (
	"context"
	"strings"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

// ephemeralHosts serve signed URLs that expire within hours
var ephemeralHosts = []string{"tiktokcdn", "cdninstagram", "fbcdn", "tiktokv", "ibyteimg", "muscdn"}

// IsEphemeral reports whether rawURL points at a CDN whose URLs expire
func IsEphemeral(rawURL string) bool {
	host := hostOf(rawURL)
	for _, h := range ephemeralHosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

// ResolveURL ingests remoteURL and applies the fallback policy on failure.
// Ephemeral origins yield an empty URL and the error. Stable origins fall back
// to the remote URL itself and no error.
func ResolveURL(ctx context.Context, ing Ingester, remoteURL string, scope models.Scope, filename, folder string) (string, error) {
	if remoteURL == "" {
		return "", nil
	}

	durable, err := ing.Ingest(ctx, remoteURL, scope, filename, folder)
	if err == nil {
		return durable, nil
	}

	logger := logging.FromContext(ctx).WithError(err).WithField("url", remoteURL)
	if IsEphemeral(remoteURL) {
		logger.Warn("Ingestion failed for expiring media, leaving field empty")
		return "", err
	}
	logger.Warn("Ingestion failed, keeping original media URL")
	return remoteURL, nil
}
