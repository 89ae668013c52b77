package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for TrendGoat.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"    yaml:"engine"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Sources   SourcesConfig   `mapstructure:"sources"   yaml:"sources"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"  yaml:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Keywords  KeywordsConfig  `mapstructure:"keywords"  yaml:"keywords"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Trending  TrendingConfig  `mapstructure:"trending"  yaml:"trending"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// EngineConfig controls a collection run.
type EngineConfig struct {
	Concurrency     int           `mapstructure:"concurrency"       yaml:"concurrency"`
	SourceTimeout   time.Duration `mapstructure:"source_timeout"    yaml:"source_timeout"`
	AnalyzeAfterRun bool          `mapstructure:"analyze_after_run" yaml:"analyze_after_run"`
}

// FetcherConfig controls the shared HTTP client.
type FetcherConfig struct {
	RequestTimeout  time.Duration      `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxRetries      int                `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryDelay      time.Duration      `mapstructure:"retry_delay"       yaml:"retry_delay"`
	MaxBodySize     int64              `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int                `mapstructure:"max_redirects"     yaml:"max_redirects"`
	IdleConnTimeout time.Duration      `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int                `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string           `mapstructure:"user_agents"       yaml:"user_agents"`
	RateLimits      []HostRate         `mapstructure:"rate_limits"       yaml:"rate_limits"`
	DefaultInterval time.Duration      `mapstructure:"default_interval"  yaml:"default_interval"`
}

// HostRate spaces requests to one host. Burst requests may go out back to
// back before the interval applies.
type HostRate struct {
	Host     string        `mapstructure:"host"     yaml:"host"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Burst    int           `mapstructure:"burst"    yaml:"burst"`
}

// BrowserConfig controls the headless browser used for Upwork.
type BrowserConfig struct {
	Headless    bool          `mapstructure:"headless"      yaml:"headless"`
	Stealth     bool          `mapstructure:"stealth"       yaml:"stealth"`
	BinPath     string        `mapstructure:"bin_path"      yaml:"bin_path"`
	MaxPages    int           `mapstructure:"max_pages"     yaml:"max_pages"`
	PageTimeout time.Duration `mapstructure:"page_timeout"  yaml:"page_timeout"`
	UserDataDir string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// SourcesConfig groups the per-source collector settings.
type SourcesConfig struct {
	Google  TrendsConfig  `mapstructure:"google"  yaml:"google"`
	Reddit  RedditConfig  `mapstructure:"reddit"  yaml:"reddit"`
	YouTube YouTubeConfig `mapstructure:"youtube" yaml:"youtube"`
	Twitter TwitterConfig `mapstructure:"twitter" yaml:"twitter"`
	Upwork  UpworkConfig  `mapstructure:"upwork"  yaml:"upwork"`
}

// TrendsConfig controls the Google Trends collector.
type TrendsConfig struct {
	Enabled          bool   `mapstructure:"enabled"           yaml:"enabled"`
	BaseURL          string `mapstructure:"base_url"          yaml:"base_url"`
	Timeframe        string `mapstructure:"timeframe"         yaml:"timeframe"`
	Geo              string `mapstructure:"geo"               yaml:"geo"`
	Language         string `mapstructure:"language"          yaml:"language"`
	TZOffset         int    `mapstructure:"tz_offset"         yaml:"tz_offset"`
	BatchSize        int    `mapstructure:"batch_size"        yaml:"batch_size"`
	RelatedQueries   bool   `mapstructure:"related_queries"   yaml:"related_queries"`
	RegionalInterest bool   `mapstructure:"regional_interest" yaml:"regional_interest"`
}

// RedditConfig controls the Reddit collector.
type RedditConfig struct {
	Enabled            bool     `mapstructure:"enabled"             yaml:"enabled"`
	ClientID           string   `mapstructure:"client_id"           yaml:"client_id"`
	ClientSecret       string   `mapstructure:"client_secret"       yaml:"client_secret"`
	UserAgent          string   `mapstructure:"user_agent"          yaml:"user_agent"`
	AuthURL            string   `mapstructure:"auth_url"            yaml:"auth_url"`
	APIURL             string   `mapstructure:"api_url"             yaml:"api_url"`
	PublicURL          string   `mapstructure:"public_url"          yaml:"public_url"`
	Subreddits         []string `mapstructure:"subreddits"          yaml:"subreddits"`
	Sort               string   `mapstructure:"sort"                yaml:"sort"`
	TimeFilter         string   `mapstructure:"time_filter"         yaml:"time_filter"`
	Limit              int      `mapstructure:"limit"               yaml:"limit"`
	TrendingSubreddits int      `mapstructure:"trending_subreddits" yaml:"trending_subreddits"`
	RSSFallback        bool     `mapstructure:"rss_fallback"        yaml:"rss_fallback"`
}

// YouTubeConfig controls the YouTube Data API collector.
type YouTubeConfig struct {
	Enabled        bool   `mapstructure:"enabled"          yaml:"enabled"`
	APIKey         string `mapstructure:"api_key"          yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url"         yaml:"base_url"`
	MaxResults     int    `mapstructure:"max_results"      yaml:"max_results"`
	Order          string `mapstructure:"order"            yaml:"order"`
	PublishedAfter string `mapstructure:"published_after"  yaml:"published_after"`
	RegionCode     string `mapstructure:"region_code"      yaml:"region_code"`
	MaxComments    int    `mapstructure:"max_comments"     yaml:"max_comments"`
}

// TwitterConfig controls the Twitter/X collector and its fallbacks.
type TwitterConfig struct {
	Enabled         bool     `mapstructure:"enabled"          yaml:"enabled"`
	BearerToken     string   `mapstructure:"bearer_token"     yaml:"bearer_token"`
	APIURL          string   `mapstructure:"api_url"          yaml:"api_url"`
	MaxResults      int      `mapstructure:"max_results"      yaml:"max_results"`
	NitterInstances []string `mapstructure:"nitter_instances" yaml:"nitter_instances"`
	NitterEnabled   bool     `mapstructure:"nitter_enabled"   yaml:"nitter_enabled"`
	MockFallback    bool     `mapstructure:"mock_fallback"    yaml:"mock_fallback"`
	MockPerKeyword  int      `mapstructure:"mock_per_keyword" yaml:"mock_per_keyword"`
}

// UpworkConfig controls the browser-driven Upwork collector.
type UpworkConfig struct {
	Enabled     bool                `mapstructure:"enabled"      yaml:"enabled"`
	BaseURL     string              `mapstructure:"base_url"     yaml:"base_url"`
	MaxJobs     int                 `mapstructure:"max_jobs"     yaml:"max_jobs"`
	MaxScrolls  int                 `mapstructure:"max_scrolls"  yaml:"max_scrolls"`
	ScrollWait  time.Duration       `mapstructure:"scroll_wait"  yaml:"scroll_wait"`
	SkipPrivate bool                `mapstructure:"skip_private" yaml:"skip_private"`
	Selectors   map[string][]string `mapstructure:"selectors"    yaml:"selectors"`
}

// PipelineConfig controls the clean step.
type PipelineConfig struct {
	MaxTextLength int  `mapstructure:"max_text_length" yaml:"max_text_length"`
	StripHTML     bool `mapstructure:"strip_html"      yaml:"strip_html"`
	CanonicalURLs bool `mapstructure:"canonical_urls"  yaml:"canonical_urls"`
}

// StorageConfig controls persistence.
type StorageConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"` // json, mongodb, both
	DataDir    string `mapstructure:"data_dir"    yaml:"data_dir"`
	HistoryCap int    `mapstructure:"history_cap" yaml:"history_cap"`
	MongoURI   string `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	MongoDB    string `mapstructure:"mongo_db"    yaml:"mongo_db"`
	Collection string `mapstructure:"collection"  yaml:"collection"`
}

// KeywordsConfig controls the keyword registry.
type KeywordsConfig struct {
	Path     string   `mapstructure:"path"     yaml:"path"`
	Defaults []string `mapstructure:"defaults" yaml:"defaults"`
}

// SchedulerConfig controls the background collection schedule.
type SchedulerConfig struct {
	StatusPath string        `mapstructure:"status_path" yaml:"status_path"`
	Interval   time.Duration `mapstructure:"interval"    yaml:"interval"`
	Sources    []string      `mapstructure:"sources"     yaml:"sources"`
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
}

// TrendingConfig controls keyword discovery.
type TrendingConfig struct {
	ReportPath       string             `mapstructure:"report_path"        yaml:"report_path"`
	MinKeywordLength int                `mapstructure:"min_keyword_length" yaml:"min_keyword_length"`
	MaxKeywords      int                `mapstructure:"max_keywords"       yaml:"max_keywords"`
	Threshold        float64            `mapstructure:"threshold"          yaml:"threshold"`
	WeightFactors    map[string]float64 `mapstructure:"weight_factors"     yaml:"weight_factors"`
}

// DashboardConfig controls the web dashboard and JSON API.
type DashboardConfig struct {
	Host           string        `mapstructure:"host"            yaml:"host"`
	Port           int           `mapstructure:"port"            yaml:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	LogLines       int           `mapstructure:"log_lines"       yaml:"log_lines"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultKeywords seed the registry on first use.
var DefaultKeywords = []string{
	"artificial intelligence",
	"climate change",
	"cryptocurrency",
	"space exploration",
	"renewable energy",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Concurrency:     1,
			SourceTimeout:   10 * time.Minute,
			AnalyzeAfterRun: true,
		},
		Fetcher: FetcherConfig{
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			RetryDelay:      2 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    50,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
			},
			RateLimits: []HostRate{
				{Host: "trends.google.com", Interval: 15 * time.Second, Burst: 2},
				{Host: "www.reddit.com", Interval: 2 * time.Second, Burst: 1},
				{Host: "oauth.reddit.com", Interval: time.Second, Burst: 1},
			},
			DefaultInterval: 500 * time.Millisecond,
		},
		Browser: BrowserConfig{
			Headless:    true,
			Stealth:     true,
			MaxPages:    2,
			PageTimeout: 45 * time.Second,
		},
		Sources: SourcesConfig{
			Google: TrendsConfig{
				Enabled:   true,
				BaseURL:   "https://trends.google.com",
				Timeframe: "today 3-m",
				Geo:       "US",
				Language:  "en-US",
				TZOffset:  360,
				BatchSize: 5,
			},
			Reddit: RedditConfig{
				Enabled:            true,
				UserAgent:          "TrendGoat/" + Version,
				AuthURL:            "https://www.reddit.com/api/v1/access_token",
				APIURL:             "https://oauth.reddit.com",
				PublicURL:          "https://www.reddit.com",
				Subreddits:         []string{"all"},
				Sort:               "hot",
				TimeFilter:         "week",
				Limit:              50,
				TrendingSubreddits: 10,
				RSSFallback:        true,
			},
			YouTube: YouTubeConfig{
				Enabled:        true,
				BaseURL:        "https://www.googleapis.com/youtube/v3",
				MaxResults:     25,
				Order:          "relevance",
				PublishedAfter: "week",
				RegionCode:     "US",
				MaxComments:    10,
			},
			Twitter: TwitterConfig{
				Enabled:    true,
				APIURL:     "https://api.twitter.com/2",
				MaxResults: 25,
				NitterInstances: []string{
					"https://nitter.net",
					"https://nitter.privacydev.net",
					"https://nitter.poast.org",
				},
				NitterEnabled:  true,
				MockFallback:   true,
				MockPerKeyword: 10,
			},
			Upwork: UpworkConfig{
				Enabled:     false,
				BaseURL:     "https://www.upwork.com",
				MaxJobs:     20,
				MaxScrolls:  3,
				ScrollWait:  2 * time.Second,
				SkipPrivate: true,
			},
		},
		Pipeline: PipelineConfig{
			MaxTextLength: 500,
			StripHTML:     true,
			CanonicalURLs: true,
		},
		Storage: StorageConfig{
			Type:       "json",
			DataDir:    "./data",
			HistoryCap: 50,
			MongoURI:   "mongodb://localhost:27017",
			MongoDB:    "keyword_trends",
			Collection: "scraped_data",
		},
		Keywords: KeywordsConfig{
			Path:     "./data/user_keywords.json",
			Defaults: DefaultKeywords,
		},
		Scheduler: SchedulerConfig{
			StatusPath: "./data/scheduler_status.json",
			Interval:   60 * time.Minute,
			Sources:    []string{"google", "reddit", "youtube", "twitter"},
			RunTimeout: 30 * time.Minute,
		},
		Trending: TrendingConfig{
			ReportPath:       "./data/trending_analysis.json",
			MinKeywordLength: 3,
			MaxKeywords:      50,
			Threshold:        3,
			WeightFactors: map[string]float64{
				"google":  1.5,
				"reddit":  1.0,
				"youtube": 1.2,
				"twitter": 1.1,
				"upwork":  0.8,
			},
		},
		Dashboard: DashboardConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			RequestTimeout: 60 * time.Second,
			LogLines:       500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
