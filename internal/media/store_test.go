package media

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestGCSStore_PutPublicObject(t *testing.T) {
	var gotACL, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotACL = r.URL.Query().Get("predefinedAcl")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "obj", "bucket": "media-bucket"})
	}))
	defer srv.Close()

	store, err := NewGCSStore(context.Background(), GCSOptions{
		Bucket:        "media-bucket",
		PublicBaseURL: "https://cdn.example.com/",
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/storage/v1/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
		},
	})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "organizations/o/projects/p/thumbnails/v 1.jpg", []byte("jpegdata"), PutOptions{
		ContentType: "image/jpeg",
		Public:      true,
	})
	require.NoError(t, err)

	assert.Contains(t, gotPath, "/b/media-bucket/o")
	assert.Equal(t, "publicRead", gotACL)
	assert.True(t, strings.Contains(string(gotBody), "jpegdata"))
	assert.Equal(t, "https://cdn.example.com/media-bucket/organizations/o/projects/p/thumbnails/v%201.jpg", url)
}

func TestNewGCSStore_RequiresBucket(t *testing.T) {
	_, err := NewGCSStore(context.Background(), GCSOptions{})
	assert.Error(t, err)
}
