// Package cleanup calls the collaborator that removes orphaned videos and accounts
// for a project after a successful sync.
package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result reports what the collaborator removed
type Result struct {
	VideosDeleted   int `json:"videosDeleted"`
	AccountsDeleted int `json:"accountsDeleted"`
}

// Cleaner runs the full cleanup for a project
type Cleaner interface {
	RunFullCleanup(ctx context.Context, orgID, projectID string) (*Result, error)
}

// HTTPCleaner posts cleanup requests to a configured endpoint
type HTTPCleaner struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewHTTPCleaner creates a cleaner. secret is sent as a bearer credential.
func NewHTTPCleaner(url, secret string, timeout time.Duration) *HTTPCleaner {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPCleaner{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type cleanupRequest struct {
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`
}

func (c *HTTPCleaner) RunFullCleanup(ctx context.Context, orgID, projectID string) (*Result, error) {
	body, err := json.Marshal(cleanupRequest{OrgID: orgID, ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("marshal cleanup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build cleanup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cleanup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cleanup returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode cleanup response: %w", err)
	}
	return &result, nil
}

// Nop does nothing. Used when no cleanup endpoint is configured.
type Nop struct{}

func (Nop) RunFullCleanup(context.Context, string, string) (*Result, error) {
	return &Result{}, nil
}
