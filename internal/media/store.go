package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// PutOptions describes how an object is stored
type PutOptions struct {
	ContentType string
	Public      bool
}

// ObjectStore writes objects and returns their public URL
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, opts PutOptions) (string, error)
}

// GCSStore stores objects in a Google Cloud Storage bucket through the JSON API
type GCSStore struct {
	svc        *storage.Service
	bucket     string
	publicBase string
}

// GCSOptions configures a GCSStore
type GCSOptions struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
	ClientOptions   []option.ClientOption
}

// NewGCSStore creates a store for the bucket. Without a credentials file the
// default application credentials are used.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("media bucket not configured")
	}
	clientOpts := opts.ClientOptions
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	svc, err := storage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	base := strings.TrimRight(opts.PublicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return &GCSStore{svc: svc, bucket: opts.Bucket, publicBase: base}, nil
}

// Put uploads data to path, readable by anyone when opts.Public is set
func (s *GCSStore) Put(ctx context.Context, path string, data []byte, opts PutOptions) (string, error) {
	obj := &storage.Object{
		Name:         path,
		ContentType:  opts.ContentType,
		CacheControl: "public, max-age=31536000",
	}

	call := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(opts.ContentType)).
		Context(ctx)
	if opts.Public {
		call = call.PredefinedAcl("publicRead")
	}

	if _, err := call.Do(); err != nil {
		return "", fmt.Errorf("insert gs://%s/%s: %w", s.bucket, path, err)
	}
	return s.PublicURL(path), nil
}

// PublicURL returns the canonical URL of an object
func (s *GCSStore) PublicURL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, strings.Join(segments, "/"))
}
