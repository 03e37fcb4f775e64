package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creator-sync/internal/models"
)

type stubIngester struct {
	url string
	err error
}

func (s stubIngester) Ingest(ctx context.Context, remoteURL string, scope models.Scope, filename, folder string) (string, error) {
	return s.url, s.err
}

func TestResolveURL_FallbackPolicy(t *testing.T) {
	failing := stubIngester{err: errors.New("403")}

	tests := []struct {
		name    string
		remote  string
		want    string
		wantErr bool
	}{
		{"tiktok cdn left empty", "https://p16-sign-va.tiktokcdn.com/a.heic", "", true},
		{"instagram cdn left empty", "https://scontent.cdninstagram.com/a.jpg", "", true},
		{"facebook cdn left empty", "https://scontent.xx.fbcdn.net/a.jpg", "", true},
		{"youtube falls back to remote", "https://i.ytimg.com/vi/a/hqdefault.jpg", "https://i.ytimg.com/vi/a/hqdefault.jpg", false},
		{"twitter falls back to remote", "https://pbs.twimg.com/media/a.jpg", "https://pbs.twimg.com/media/a.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(context.Background(), failing, tt.remote, testScope, "a.jpg", "thumbnails")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestResolveURL_SuccessAndEmpty(t *testing.T) {
	ok := stubIngester{url: "https://storage.example.com/a.jpg"}

	got, err := ResolveURL(context.Background(), ok, "https://p16.tiktokcdn.com/a.jpg", testScope, "a.jpg", "thumbnails")
	assert.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/a.jpg", got)

	got, err = ResolveURL(context.Background(), ok, "", testScope, "a.jpg", "thumbnails")
	assert.NoError(t, err)
	assert.Empty(t, got)
}
