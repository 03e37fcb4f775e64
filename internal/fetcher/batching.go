package fetcher

import (
	"context"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

// batch is one provider response after normalization. returned counts the
// raw items so a short batch is detected even when some items were dropped.
type batch struct {
	records  []*models.VideoRecord
	returned int
	profile  *models.ProfileInfo
}

// batchFunc fetches the newest size items
type batchFunc func(ctx context.Context, size int) (*batch, error)

// seenSet holds IDs collected earlier in the same run
type seenSet map[string]struct{}

type discovery struct {
	collected []*models.VideoRecord
	requested []int
	partial   bool
	profile   *models.ProfileInfo
}

// discover escalates through sizes until it reaches an ID in persisted, the end
// of history, the last size or maxNew collected items. A failed batch stops
// escalation and marks the discovery partial, whatever its size.
func discover(ctx context.Context, sizes []int, maxNew int, persisted models.DedupIndex, fetch batchFunc, logger *logging.Logger) discovery {
	var d discovery
	seen := seenSet{}

	for _, size := range sizes {
		d.requested = append(d.requested, size)

		b, err := fetch(ctx, size)
		if err != nil {
			logger.WithError(err).WithField("batchSize", size).Warn("Batch failed, keeping partial results")
			d.partial = true
			break
		}
		if d.profile == nil {
			d.profile = b.profile
		}

		var boundary bool
		d.collected, seen, boundary = scanBatch(b.records, persisted, seen, d.collected, maxNew)

		logger.WithFields(map[string]interface{}{
			"batchSize": size,
			"returned":  b.returned,
			"collected": len(d.collected),
			"boundary":  boundary,
		}).Debug("Scanned batch")

		if boundary || b.returned < size || capReached(d.collected, maxNew) {
			break
		}
	}
	return d
}

// scanBatch walks records newest first. A persisted ID is the dedup boundary
// and ends the scan. IDs already in seen came from a smaller batch of this run
// and are skipped.
func scanBatch(records []*models.VideoRecord, persisted models.DedupIndex, seen seenSet, acc []*models.VideoRecord, maxNew int) ([]*models.VideoRecord, seenSet, bool) {
	for _, rec := range records {
		if persisted.Contains(rec.VideoID) {
			return acc, seen, true
		}
		if _, ok := seen[rec.VideoID]; ok {
			continue
		}
		if capReached(acc, maxNew) {
			return acc, seen, false
		}
		seen[rec.VideoID] = struct{}{}
		acc = append(acc, rec)
	}
	return acc, seen, false
}

func capReached(acc []*models.VideoRecord, maxNew int) bool {
	return maxNew > 0 && len(acc) >= maxNew
}
