package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/creator-sync/internal/errors"
)

const userAgentChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxDownloadBytes caps a single asset download
const maxDownloadBytes = 25 << 20

// refererFor returns the origin some CDNs require before serving an asset
func refererFor(rawURL string) string {
	host := hostOf(rawURL)
	switch {
	case strings.Contains(host, "tiktok"):
		return "https://www.tiktok.com/"
	case strings.Contains(host, "cdninstagram"), strings.Contains(host, "fbcdn"), strings.Contains(host, "instagram"):
		return "https://www.instagram.com/"
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

type downloaded struct {
	data        []byte
	contentType string
}

func download(ctx context.Context, client *http.Client, rawURL string, minBytes int) (*downloaded, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewDownloadError(rawURL, "invalid url", err)
	}
	req.Header.Set("User-Agent", userAgentChrome)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if ref := refererFor(rawURL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewDownloadError(rawURL, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewDownloadError(rawURL, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, apperrors.NewDownloadError(rawURL, "read body", err)
	}
	if len(data) < minBytes {
		return nil, apperrors.NewDownloadError(rawURL, fmt.Sprintf("payload too small (%d bytes)", len(data)), nil)
	}

	return &downloaded{data: data, contentType: resp.Header.Get("Content-Type")}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
