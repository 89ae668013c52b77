package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.Concurrency > len(types.AllSources()) {
		return fmt.Errorf("engine.concurrency must be <= %d, got %d", len(types.AllSources()), cfg.Engine.Concurrency)
	}
	if cfg.Engine.SourceTimeout <= 0 {
		return fmt.Errorf("engine.source_timeout must be > 0")
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	for i, hr := range cfg.Fetcher.RateLimits {
		if strings.TrimSpace(hr.Host) == "" {
			return fmt.Errorf("fetcher.rate_limits[%d].host is required", i)
		}
		if hr.Interval < 0 || hr.Burst < 0 {
			return fmt.Errorf("fetcher.rate_limits[%d] (%s): interval and burst must be >= 0", i, hr.Host)
		}
	}

	if err := validateSources(&cfg.Sources); err != nil {
		return err
	}

	if cfg.Pipeline.MaxTextLength < 0 {
		return fmt.Errorf("pipeline.max_text_length must be >= 0, got %d", cfg.Pipeline.MaxTextLength)
	}

	validStorageTypes := map[string]bool{
		"json": true, "mongodb": true, "both": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, mongodb, both)", cfg.Storage.Type)
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if cfg.Storage.HistoryCap < 1 {
		return fmt.Errorf("storage.history_cap must be >= 1, got %d", cfg.Storage.HistoryCap)
	}
	if cfg.Storage.Type != "json" {
		if !strings.HasPrefix(cfg.Storage.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.Storage.MongoURI, "mongodb+srv://") {
			return fmt.Errorf("storage.mongo_uri must start with mongodb:// or mongodb+srv://")
		}
		if cfg.Storage.MongoDB == "" || cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.mongo_db and storage.collection must be set")
		}
	}

	if cfg.Scheduler.Interval < 5*time.Minute || cfg.Scheduler.Interval > 24*time.Hour {
		return fmt.Errorf("scheduler.interval must be between 5m and 24h, got %s", cfg.Scheduler.Interval)
	}
	if _, err := types.ParseSources(cfg.Scheduler.Sources); err != nil {
		return fmt.Errorf("scheduler.sources: %w", err)
	}

	if cfg.Trending.MinKeywordLength < 1 {
		return fmt.Errorf("trending.min_keyword_length must be >= 1, got %d", cfg.Trending.MinKeywordLength)
	}
	if cfg.Trending.MaxKeywords < 1 {
		return fmt.Errorf("trending.max_keywords must be >= 1, got %d", cfg.Trending.MaxKeywords)
	}
	for name := range cfg.Trending.WeightFactors {
		if _, err := types.ParseSource(name); err != nil {
			return fmt.Errorf("trending.weight_factors: %w", err)
		}
	}

	if cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be 1-65535, got %d", cfg.Dashboard.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

func validateSources(s *SourcesConfig) error {
	if s.Google.Enabled {
		if err := ValidateURL(s.Google.BaseURL); err != nil {
			return fmt.Errorf("sources.google.base_url: %w", err)
		}
		if s.Google.BatchSize < 1 || s.Google.BatchSize > 5 {
			return fmt.Errorf("sources.google.batch_size must be 1-5, got %d", s.Google.BatchSize)
		}
	}

	if s.Reddit.Enabled {
		if len(s.Reddit.Subreddits) == 0 {
			return fmt.Errorf("sources.reddit.subreddits must not be empty")
		}
		validSorts := map[string]bool{"relevance": true, "hot": true, "top": true, "new": true, "comments": true}
		if !validSorts[s.Reddit.Sort] {
			return fmt.Errorf("sources.reddit.sort %q is not supported", s.Reddit.Sort)
		}
		validWindows := map[string]bool{"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true}
		if !validWindows[s.Reddit.TimeFilter] {
			return fmt.Errorf("sources.reddit.time_filter %q is not supported", s.Reddit.TimeFilter)
		}
		if s.Reddit.Limit < 1 || s.Reddit.Limit > 100 {
			return fmt.Errorf("sources.reddit.limit must be 1-100, got %d", s.Reddit.Limit)
		}
	}

	if s.YouTube.Enabled {
		if s.YouTube.MaxResults < 1 || s.YouTube.MaxResults > 50 {
			return fmt.Errorf("sources.youtube.max_results must be 1-50, got %d", s.YouTube.MaxResults)
		}
		validWindows := map[string]bool{"": true, "hour": true, "day": true, "week": true, "month": true, "year": true}
		if !validWindows[s.YouTube.PublishedAfter] {
			return fmt.Errorf("sources.youtube.published_after %q is not supported", s.YouTube.PublishedAfter)
		}
	}

	if s.Twitter.Enabled {
		if s.Twitter.MaxResults < 10 || s.Twitter.MaxResults > 100 {
			return fmt.Errorf("sources.twitter.max_results must be 10-100, got %d", s.Twitter.MaxResults)
		}
		for _, inst := range s.Twitter.NitterInstances {
			if err := ValidateURL(inst); err != nil {
				return fmt.Errorf("sources.twitter.nitter_instances %q: %w", inst, err)
			}
		}
	}

	if s.Upwork.Enabled {
		if err := ValidateURL(s.Upwork.BaseURL); err != nil {
			return fmt.Errorf("sources.upwork.base_url: %w", err)
		}
		if s.Upwork.MaxJobs < 1 {
			return fmt.Errorf("sources.upwork.max_jobs must be >= 1, got %d", s.Upwork.MaxJobs)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
