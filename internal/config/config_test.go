package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trendgoat.yaml")
	yaml := `
storage:
  type: both
  data_dir: /tmp/trendgoat
sources:
  reddit:
    subreddits: [technology, science]
    limit: 25
scheduler:
  interval: 30m
  sources: [reddit, twitter]
trending:
  weight_factors:
    reddit: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "both", cfg.Storage.Type)
	assert.Equal(t, "/tmp/trendgoat", cfg.Storage.DataDir)
	assert.Equal(t, []string{"technology", "science"}, cfg.Sources.Reddit.Subreddits)
	assert.Equal(t, 25, cfg.Sources.Reddit.Limit)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, []string{"reddit", "twitter"}, cfg.Scheduler.Sources)
	assert.InDelta(t, 2.5, cfg.Trending.WeightFactors["reddit"], 1e-9)

	// untouched sections keep their defaults
	assert.Equal(t, "hot", cfg.Sources.Reddit.Sort)
	assert.Equal(t, 5, cfg.Sources.Google.BatchSize)
	require.NoError(t, Validate(cfg))
}

func TestLoadHostRateLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trendgoat.yaml")
	yaml := `
fetcher:
  rate_limits:
    - host: trends.google.com
      interval: 20s
      burst: 3
    - host: www.youtube.com
      interval: 1500ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []HostRate{
		{Host: "trends.google.com", Interval: 20 * time.Second, Burst: 3},
		{Host: "www.youtube.com", Interval: 1500 * time.Millisecond},
	}, cfg.Fetcher.RateLimits)
	require.NoError(t, Validate(cfg))
}

func TestDefaultGoogleTrendsRate(t *testing.T) {
	var found bool
	for _, hr := range DefaultConfig().Fetcher.RateLimits {
		if hr.Host == "trends.google.com" {
			found = true
			assert.Equal(t, 15*time.Second, hr.Interval)
			assert.Greater(t, hr.Burst, 1)
		}
	}
	assert.True(t, found)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRENDGOAT_DASHBOARD_PORT", "8088")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Dashboard.Port)
	assert.Equal(t, "yt-key", cfg.Sources.YouTube.APIKey)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Engine.Concurrency = 0 }},
		{"bad storage", func(c *Config) { c.Storage.Type = "csv" }},
		{"bad mongo uri", func(c *Config) { c.Storage.Type = "mongodb"; c.Storage.MongoURI = "localhost" }},
		{"short interval", func(c *Config) { c.Scheduler.Interval = 10 * time.Second }},
		{"unknown scheduler source", func(c *Config) { c.Scheduler.Sources = []string{"myspace"} }},
		{"bad reddit sort", func(c *Config) { c.Sources.Reddit.Sort = "best" }},
		{"trends batch too big", func(c *Config) { c.Sources.Google.BatchSize = 6 }},
		{"bad nitter url", func(c *Config) { c.Sources.Twitter.NitterInstances = []string{"nitter.net"} }},
		{"rate limit without host", func(c *Config) { c.Fetcher.RateLimits = []HostRate{{Interval: time.Second}} }},
		{"negative rate interval", func(c *Config) { c.Fetcher.RateLimits[0].Interval = -time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"unknown weight source", func(c *Config) { c.Trending.WeightFactors["tiktok"] = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://trends.google.com"))
	assert.Error(t, ValidateURL("ftp://example.com"))
	assert.Error(t, ValidateURL("https://"))
}
