package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. TRENDGOAT_SOURCES_YOUTUBE_API_KEY.
const envPrefix = "TRENDGOAT"

// Load reads configuration from the config file and the environment. A
// local .env file is loaded into the environment first.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecrets(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("trendgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".trendgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Lists from the file replace the defaults instead of merging into them
	// element by element.
	if v.InConfig("fetcher.rate_limits") {
		cfg.Fetcher.RateLimits = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// bindSecrets maps the conventional credential variable names used by the
// upstream providers onto their config keys.
func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("sources.reddit.client_id", envPrefix+"_SOURCES_REDDIT_CLIENT_ID", "REDDIT_CLIENT_ID")
	_ = v.BindEnv("sources.reddit.client_secret", envPrefix+"_SOURCES_REDDIT_CLIENT_SECRET", "REDDIT_CLIENT_SECRET")
	_ = v.BindEnv("sources.reddit.user_agent", envPrefix+"_SOURCES_REDDIT_USER_AGENT", "REDDIT_USER_AGENT")
	_ = v.BindEnv("sources.youtube.api_key", envPrefix+"_SOURCES_YOUTUBE_API_KEY", "YOUTUBE_API_KEY")
	_ = v.BindEnv("sources.twitter.bearer_token", envPrefix+"_SOURCES_TWITTER_BEARER_TOKEN", "TWITTER_BEARER_TOKEN")
	_ = v.BindEnv("storage.mongo_uri", envPrefix+"_STORAGE_MONGO_URI", "MONGODB_URI")
}

// setDefaults registers default values in viper so that env overrides work
// for keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.concurrency", cfg.Engine.Concurrency)
	v.SetDefault("engine.source_timeout", cfg.Engine.SourceTimeout)
	v.SetDefault("engine.analyze_after_run", cfg.Engine.AnalyzeAfterRun)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.default_interval", cfg.Fetcher.DefaultInterval)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.max_pages", cfg.Browser.MaxPages)
	v.SetDefault("browser.page_timeout", cfg.Browser.PageTimeout)

	g := cfg.Sources.Google
	v.SetDefault("sources.google.enabled", g.Enabled)
	v.SetDefault("sources.google.base_url", g.BaseURL)
	v.SetDefault("sources.google.timeframe", g.Timeframe)
	v.SetDefault("sources.google.geo", g.Geo)
	v.SetDefault("sources.google.language", g.Language)
	v.SetDefault("sources.google.tz_offset", g.TZOffset)
	v.SetDefault("sources.google.batch_size", g.BatchSize)
	v.SetDefault("sources.google.related_queries", g.RelatedQueries)
	v.SetDefault("sources.google.regional_interest", g.RegionalInterest)

	r := cfg.Sources.Reddit
	v.SetDefault("sources.reddit.enabled", r.Enabled)
	v.SetDefault("sources.reddit.user_agent", r.UserAgent)
	v.SetDefault("sources.reddit.auth_url", r.AuthURL)
	v.SetDefault("sources.reddit.api_url", r.APIURL)
	v.SetDefault("sources.reddit.public_url", r.PublicURL)
	v.SetDefault("sources.reddit.subreddits", r.Subreddits)
	v.SetDefault("sources.reddit.sort", r.Sort)
	v.SetDefault("sources.reddit.time_filter", r.TimeFilter)
	v.SetDefault("sources.reddit.limit", r.Limit)
	v.SetDefault("sources.reddit.trending_subreddits", r.TrendingSubreddits)
	v.SetDefault("sources.reddit.rss_fallback", r.RSSFallback)

	y := cfg.Sources.YouTube
	v.SetDefault("sources.youtube.enabled", y.Enabled)
	v.SetDefault("sources.youtube.base_url", y.BaseURL)
	v.SetDefault("sources.youtube.max_results", y.MaxResults)
	v.SetDefault("sources.youtube.order", y.Order)
	v.SetDefault("sources.youtube.published_after", y.PublishedAfter)
	v.SetDefault("sources.youtube.region_code", y.RegionCode)
	v.SetDefault("sources.youtube.max_comments", y.MaxComments)

	t := cfg.Sources.Twitter
	v.SetDefault("sources.twitter.enabled", t.Enabled)
	v.SetDefault("sources.twitter.api_url", t.APIURL)
	v.SetDefault("sources.twitter.max_results", t.MaxResults)
	v.SetDefault("sources.twitter.nitter_instances", t.NitterInstances)
	v.SetDefault("sources.twitter.nitter_enabled", t.NitterEnabled)
	v.SetDefault("sources.twitter.mock_fallback", t.MockFallback)
	v.SetDefault("sources.twitter.mock_per_keyword", t.MockPerKeyword)

	u := cfg.Sources.Upwork
	v.SetDefault("sources.upwork.enabled", u.Enabled)
	v.SetDefault("sources.upwork.base_url", u.BaseURL)
	v.SetDefault("sources.upwork.max_jobs", u.MaxJobs)
	v.SetDefault("sources.upwork.max_scrolls", u.MaxScrolls)
	v.SetDefault("sources.upwork.scroll_wait", u.ScrollWait)
	v.SetDefault("sources.upwork.skip_private", u.SkipPrivate)

	v.SetDefault("pipeline.max_text_length", cfg.Pipeline.MaxTextLength)
	v.SetDefault("pipeline.strip_html", cfg.Pipeline.StripHTML)
	v.SetDefault("pipeline.canonical_urls", cfg.Pipeline.CanonicalURLs)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.history_cap", cfg.Storage.HistoryCap)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_db", cfg.Storage.MongoDB)
	v.SetDefault("storage.collection", cfg.Storage.Collection)

	v.SetDefault("keywords.path", cfg.Keywords.Path)
	v.SetDefault("keywords.defaults", cfg.Keywords.Defaults)

	v.SetDefault("scheduler.status_path", cfg.Scheduler.StatusPath)
	v.SetDefault("scheduler.interval", cfg.Scheduler.Interval)
	v.SetDefault("scheduler.sources", cfg.Scheduler.Sources)
	v.SetDefault("scheduler.run_timeout", cfg.Scheduler.RunTimeout)

	v.SetDefault("trending.report_path", cfg.Trending.ReportPath)
	v.SetDefault("trending.min_keyword_length", cfg.Trending.MinKeywordLength)
	v.SetDefault("trending.max_keywords", cfg.Trending.MaxKeywords)
	v.SetDefault("trending.threshold", cfg.Trending.Threshold)

	v.SetDefault("dashboard.host", cfg.Dashboard.Host)
	v.SetDefault("dashboard.port", cfg.Dashboard.Port)
	v.SetDefault("dashboard.request_timeout", cfg.Dashboard.RequestTimeout)
	v.SetDefault("dashboard.log_lines", cfg.Dashboard.LogLines)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
