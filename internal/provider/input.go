package provider

import (
	"fmt"
	"strings"

	"github.com/creator-sync/internal/types"
)

// SortNewest asks the actor for the most recent items first
const SortNewest = "newest"

// Request is the platform-neutral shape of one actor run.
// Target is the creator handle. URLs, when set, address specific posts instead.
type Request struct {
	Target    string
	Limit     int
	SortOrder string
	Proxy     string // proxy group, empty disables the proxy
	URLs      []string
}

// BuildInput maps a request onto the input document each platform's actor expects
func BuildInput(platform types.Platform, req Request) (map[string]any, error) {
	input := map[string]any{}
	if req.Proxy != "" {
		input["proxyConfiguration"] = map[string]any{
			"useApifyProxy":    true,
			"apifyProxyGroups": []string{req.Proxy},
		}
	}

	handle := strings.TrimPrefix(req.Target, "@")

	switch platform {
	case types.PlatformTikTok:
		input["shouldDownloadVideos"] = false
		input["shouldDownloadCovers"] = false
		if len(req.URLs) > 0 {
			input["postURLs"] = req.URLs
			input["resultsPerPage"] = len(req.URLs)
		} else {
			input["profiles"] = []string{handle}
			input["resultsPerPage"] = req.Limit
			if req.SortOrder == SortNewest {
				input["profileSorting"] = "latest"
			}
		}

	case types.PlatformInstagram:
		input["resultsType"] = "posts"
		if len(req.URLs) > 0 {
			input["directUrls"] = req.URLs
			input["resultsLimit"] = len(req.URLs)
		} else {
			input["directUrls"] = []string{fmt.Sprintf("https://www.instagram.com/%s/", handle)}
			input["resultsLimit"] = req.Limit
		}

	case types.PlatformYouTube:
		input["startUrls"] = []map[string]string{{"url": fmt.Sprintf("https://www.youtube.com/@%s/videos", handle)}}
		input["maxResults"] = req.Limit
		if req.SortOrder == SortNewest {
			input["sortVideosBy"] = "NEWEST"
		}

	case types.PlatformTwitter:
		input["twitterHandles"] = []string{handle}
		input["maxItems"] = req.Limit
		if req.SortOrder == SortNewest {
			input["sort"] = "Latest"
		}

	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}

	return input, nil
}
