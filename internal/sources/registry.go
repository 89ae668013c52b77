// Package sources wires the per-provider collectors into a registry the
// engine and dashboard select from.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/sources/reddit"
	"github.com/IshaanNene/TrendGoat/internal/sources/trends"
	"github.com/IshaanNene/TrendGoat/internal/sources/twitter"
	"github.com/IshaanNene/TrendGoat/internal/sources/upwork"
	"github.com/IshaanNene/TrendGoat/internal/sources/youtube"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Collector gathers records for a set of keywords from one provider.
// A collector may return a partial batch together with an error.
type Collector interface {
	Name() types.Source
	Collect(ctx context.Context, keywords []string) (*types.Batch, error)
}

// Registry holds the enabled collectors.
type Registry struct {
	collectors map[types.Source]Collector
	logger     *slog.Logger
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		collectors: make(map[types.Source]Collector),
		logger:     logger.With("component", "source_registry"),
	}
}

// Build registers a collector for every enabled source. browser may be nil
// when Upwork is disabled.
func Build(cfg *config.SourcesConfig, client *fetcher.HTTPFetcher, browser upwork.Renderer, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	var cs []Collector
	if cfg.Google.Enabled {
		cs = append(cs, trends.New(&cfg.Google, client, logger))
	}
	if cfg.Reddit.Enabled {
		cs = append(cs, reddit.New(&cfg.Reddit, client, logger))
	}
	if cfg.YouTube.Enabled {
		cs = append(cs, youtube.New(&cfg.YouTube, client, logger))
	}
	if cfg.Twitter.Enabled {
		cs = append(cs, twitter.New(&cfg.Twitter, client, logger))
	}
	if cfg.Upwork.Enabled {
		if browser == nil {
			return nil, fmt.Errorf("upwork is enabled but no browser is available")
		}
		cs = append(cs, upwork.New(&cfg.Upwork, browser, logger))
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a collector. Each source may be registered once.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.collectors[name]; exists {
		return fmt.Errorf("collector %q already registered", name)
	}
	r.collectors[name] = c
	r.logger.Debug("collector registered", "source", name)
	return nil
}

// Get returns the collector for src.
func (r *Registry) Get(src types.Source) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[src]
	return c, ok
}

// Sources lists registered sources in display order.
func (r *Registry) Sources() []types.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Source
	for _, src := range types.AllSources() {
		if _, ok := r.collectors[src]; ok {
			out = append(out, src)
		}
	}
	return out
}

// Select returns the collectors for the requested sources, or every
// registered collector when none are requested. Asking for a source that
// is not registered yields ErrSourceDisabled.
func (r *Registry) Select(requested []types.Source) ([]Collector, error) {
	if len(requested) == 0 {
		requested = r.Sources()
	}
	out := make([]Collector, 0, len(requested))
	for _, src := range requested {
		c, ok := r.Get(src)
		if !ok {
			return nil, fmt.Errorf("%s: %w", src, types.ErrSourceDisabled)
		}
		out = append(out, c)
	}
	return out, nil
}

// Info summarizes a source's configuration for status displays.
type Info struct {
	Source  types.Source `json:"source"`
	Label   string       `json:"label"`
	Enabled bool         `json:"enabled"`
	Ready   bool         `json:"ready"`
	Method  string       `json:"method"`
	Note    string       `json:"note,omitempty"`
}

// Describe reports per source whether it can run and which method it
// will try first.
func Describe(cfg *config.SourcesConfig) []Info {
	out := make([]Info, 0, len(types.AllSources()))
	for _, src := range types.AllSources() {
		info := Info{Source: src, Label: src.Label(), Ready: true}
		switch src {
		case types.SourceGoogle:
			info.Enabled = cfg.Google.Enabled
			info.Method = "widget_api"
		case types.SourceReddit:
			info.Enabled = cfg.Reddit.Enabled
			if cfg.Reddit.ClientID != "" && cfg.Reddit.ClientSecret != "" {
				info.Method = reddit.MethodOAuth
			} else {
				info.Method = reddit.MethodPublic
				info.Note = "no client credentials, using public JSON"
			}
		case types.SourceYouTube:
			info.Enabled = cfg.YouTube.Enabled
			info.Method = "data_api_v3"
			if cfg.YouTube.APIKey == "" {
				info.Ready = false
				info.Note = "YOUTUBE_API_KEY is not set"
			}
		case types.SourceTwitter:
			info.Enabled = cfg.Twitter.Enabled
			switch {
			case cfg.Twitter.BearerToken != "":
				info.Method = twitter.MethodAPI
			case cfg.Twitter.NitterEnabled && len(cfg.Twitter.NitterInstances) > 0:
				info.Method = twitter.MethodNitter
				info.Note = "no bearer token, scraping Nitter"
			case cfg.Twitter.MockFallback:
				info.Method = twitter.MethodMock
				info.Note = "no live method configured, records are generated"
			default:
				info.Ready = false
				info.Note = "no bearer token and Nitter is disabled"
			}
		case types.SourceUpwork:
			info.Enabled = cfg.Upwork.Enabled
			info.Method = "browser"
		}
		out = append(out, info)
	}
	return out
}
