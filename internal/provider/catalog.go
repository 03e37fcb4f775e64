package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/creator-sync/internal/types"
)

// Catalog maps each platform to the actor that scrapes it
type Catalog struct {
	Actors map[types.Platform]string `yaml:"actors"`
}

// DefaultCatalog returns the built-in actor catalog
func DefaultCatalog() *Catalog {
	return &Catalog{
		Actors: map[types.Platform]string{
			types.PlatformTikTok:    "clockworks~tiktok-scraper",
			types.PlatformInstagram: "apify~instagram-scraper",
			types.PlatformYouTube:   "streamers~youtube-scraper",
			types.PlatformTwitter:   "apidojo~tweet-scraper",
		},
	}
}

// LoadCatalog reads a YAML override file on top of the defaults.
// Environment variables in the file are expanded.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actor catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &override); err != nil {
		return nil, fmt.Errorf("parse actor catalog: %w", err)
	}

	for platform, actor := range override.Actors {
		if _, err := types.ParsePlatform(string(platform)); err != nil {
			return nil, fmt.Errorf("actor catalog: %w", err)
		}
		if actor != "" {
			catalog.Actors[platform] = actor
		}
	}
	return catalog, nil
}

// Actor returns the actor configured for platform
func (c *Catalog) Actor(platform types.Platform) (string, error) {
	actor, ok := c.Actors[platform]
	if !ok || actor == "" {
		return "", fmt.Errorf("no actor configured for platform %s", platform)
	}
	return actor, nil
}
