// Package media materializes remote images into durable, tenant-scoped object storage.
package media

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

// DefaultMinBytes is the smallest payload accepted as an image
const DefaultMinBytes = 1000

// Ingester copies a remote asset into durable storage
type Ingester interface {
	Ingest(ctx context.Context, remoteURL string, scope models.Scope, filename, folder string) (string, error)
}

// Options configures an Ingestor
type Options struct {
	MinBytes   int
	Timeout    time.Duration
	HTTPClient *http.Client
	Converter  Converter
}

// Ingestor downloads, converts when needed and uploads media
type Ingestor struct {
	store     ObjectStore
	converter Converter
	client    *http.Client
	minBytes  int
}

// NewIngestor creates an ingestor writing to store
func NewIngestor(store ObjectStore, opts Options) *Ingestor {
	if opts.MinBytes <= 0 {
		opts.MinBytes = DefaultMinBytes
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = newHTTPClient(opts.Timeout)
	}
	if opts.Converter == nil {
		opts.Converter = NewHEICConverter()
	}
	return &Ingestor{store: store, converter: opts.Converter, client: opts.HTTPClient, minBytes: opts.MinBytes}
}

// ObjectPath is the deterministic tenant-scoped location of an asset
func ObjectPath(scope models.Scope, folder, filename string) string {
	return fmt.Sprintf("organizations/%s/projects/%s/%s/%s", scope.OrgID, scope.ProjectID, folder, filename)
}

// Ingest downloads remoteURL and uploads it under the scope's folder. HEIC
// payloads are converted to JPEG; a failed conversion uploads the original bytes.
func (i *Ingestor) Ingest(ctx context.Context, remoteURL string, scope models.Scope, filename, folder string) (string, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"component": "media",
		"file":      filename,
	})

	dl, err := download(ctx, i.client, remoteURL, i.minBytes)
	if err != nil {
		return "", err
	}

	data := dl.data
	format := Classify(dl.contentType, remoteURL, data)
	contentType := dl.contentType
	if contentType == "" {
		contentType = format.ContentType()
	}

	if format == FormatHEIC {
		converted, convErr := i.converter.ToJPEG(data)
		if convErr != nil {
			logger.WithError(apperrors.NewConversionError(filename, convErr)).Warn("HEIC conversion failed, uploading original")
		} else {
			data = converted
			contentType = FormatJPEG.ContentType()
			filename = jpegFilename(filename)
		}
	}

	objectPath := ObjectPath(scope, folder, filename)
	publicURL, err := i.store.Put(ctx, objectPath, data, PutOptions{ContentType: contentType, Public: true})
	if err != nil {
		return "", apperrors.NewUploadError(objectPath, err)
	}

	logger.WithFields(map[string]interface{}{
		"bytes":  len(data),
		"format": string(format),
	}).Debug("Media ingested")
	return publicURL, nil
}
