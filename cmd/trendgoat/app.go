package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/engine"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/keywords"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/sources"
	"github.com/IshaanNene/TrendGoat/internal/sources/upwork"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	logs     *observability.LogBuffer
	metrics  *observability.Metrics
	store    storage.Store
	keywords *keywords.Registry
	trending *trending.Service

	// set by withEngine
	engine  *engine.Engine
	client  *fetcher.HTTPFetcher
	browser *fetcher.BrowserFetcher
}

// loadConfig reads and validates the configuration. overrides runs before
// validation so flags are checked like file values.
func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if overrides != nil {
		overrides(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp wires logging, storage, keywords and trending analysis.
func newApp(ctx context.Context, overrides func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(overrides)
	if err != nil {
		return nil, err
	}

	logs := observability.NewLogBuffer(cfg.Dashboard.LogLines)
	logger := observability.NewLogger(cfg.Logging, verbose, logs)
	slog.SetDefault(logger)

	store, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		logs:     logs,
		metrics:  observability.NewMetrics(),
		store:    store,
		keywords: keywords.New(&cfg.Keywords, logger),
		trending: trending.NewService(&cfg.Trending, store, logger),
	}, nil
}

// withEngine builds the HTTP client, the collectors and the engine.
func (a *app) withEngine() error {
	client, err := fetcher.NewHTTPFetcher(&a.cfg.Fetcher, a.logger, fetcher.WithObserver(a.metrics))
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	a.client = client

	var renderer upwork.Renderer
	if a.cfg.Sources.Upwork.Enabled {
		a.browser = fetcher.NewBrowserFetcher(&a.cfg.Browser, a.logger)
		renderer = a.browser
	}

	registry, err := sources.Build(&a.cfg.Sources, client, renderer, a.logger)
	if err != nil {
		return fmt.Errorf("build collectors: %w", err)
	}
	for _, info := range sources.Describe(&a.cfg.Sources) {
		if !info.Enabled {
			continue
		}
		a.logger.Debug("source configured", "source", info.Source, "method", info.Method, "ready", info.Ready, "note", info.Note)
	}

	a.engine = engine.New(a.cfg, registry, a.store, a.keywords, a.logger)
	a.engine.SetAnalyzer(a.trending)
	a.engine.SetMetrics(a.metrics)
	return nil
}

// Close releases the browser, the HTTP client and the store.
func (a *app) Close() error {
	var errs []error
	if a.browser != nil {
		errs = append(errs, a.browser.Close())
	}
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
