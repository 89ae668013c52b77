package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/TrendGoat/internal/automation"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// RenderOptions controls what happens between navigation and capture.
type RenderOptions struct {
	// WaitSelectors are tried in order; the first to appear ends the wait.
	WaitSelectors []string
	WaitTimeout   time.Duration

	// DismissSelectors are clicked if present, e.g. cookie banners.
	DismissSelectors []string

	MaxScrolls int
	ScrollWait time.Duration
}

// Rendered is the captured state of a page.
type Rendered struct {
	HTML     string
	FinalURL string
	Title    string
	Duration time.Duration
}

// BrowserFetcher drives a headless Chromium via Rod. Pages are pooled and
// bounded by BrowserConfig.MaxPages.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.BrowserConfig
	logger  *slog.Logger

	launchOnce sync.Once
	launchErr  error
	slots      chan struct{}
}

// NewBrowserFetcher creates a browser fetcher. Chromium is launched on
// first use so that runs which never touch a browser source pay nothing.
func NewBrowserFetcher(cfg *config.BrowserConfig, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    cfg,
		logger: logger.With("component", "browser_fetcher"),
		slots:  make(chan struct{}, max(cfg.MaxPages, 1)),
	}
}

func (bf *BrowserFetcher) launch() error {
	bf.launchOnce.Do(func() {
		l := launcher.New().
			Headless(bf.cfg.Headless).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("no-sandbox").
			Set("disable-blink-features", "AutomationControlled").
			Set("window-size", randomWindowSize())
		if bf.cfg.BinPath != "" {
			l = l.Bin(bf.cfg.BinPath)
		}
		if bf.cfg.UserDataDir != "" {
			l = l.UserDataDir(bf.cfg.UserDataDir)
		}

		controlURL, err := l.Launch()
		if err != nil {
			bf.launchErr = fmt.Errorf("launch browser: %w", err)
			return
		}
		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			bf.launchErr = fmt.Errorf("connect browser: %w", err)
			return
		}
		bf.browser = browser
		bf.logger.Info("browser ready", "headless", bf.cfg.Headless, "stealth", bf.cfg.Stealth, "max_pages", cap(bf.slots))
	})
	return bf.launchErr
}

func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.cfg.Stealth {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Render navigates to rawURL and returns the page HTML once opts are done.
func (bf *BrowserFetcher) Render(ctx context.Context, rawURL string, opts RenderOptions) (*Rendered, error) {
	if err := bf.launch(); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	select {
	case bf.slots <- struct{}{}:
		defer func() { <-bf.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	page, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("open page: %w", err), Retryable: true}
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	timeout := bf.cfg.PageTimeout
	if err := page.Timeout(timeout).Navigate(rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if err := page.Timeout(timeout).WaitStable(500 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", rawURL, "error", err)
	}

	auto := automation.NewPage(page, bf.logger)
	auto.ClickIfPresent(opts.DismissSelectors...)

	if len(opts.WaitSelectors) > 0 {
		wait := opts.WaitTimeout
		if wait <= 0 {
			wait = 15 * time.Second
		}
		if _, err := auto.WaitAny(ctx, wait, opts.WaitSelectors...); err != nil {
			bf.logger.Warn("wait selectors timeout", "url", rawURL, "error", err)
		}
	}

	if opts.MaxScrolls > 0 {
		if _, err := auto.InfiniteScroll(ctx, opts.MaxScrolls, opts.ScrollWait); err != nil {
			bf.logger.Warn("scroll failed", "url", rawURL, "error", err)
		}
	}

	html, err := auto.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	out := &Rendered{
		HTML:     html,
		FinalURL: finalURL,
		Title:    PageTitle(html),
		Duration: time.Since(start),
	}
	if kind := DetectChallenge(html); kind != ChallengeNone {
		return out, &types.FetchError{URL: rawURL, Err: fmt.Errorf("%w: %s", types.ErrBlocked, kind)}
	}

	bf.logger.Debug("render complete", "url", rawURL, "final_url", finalURL, "size", len(html), "duration", out.Duration)
	return out, nil
}

// Fetch renders req's URL with default options.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	r, err := bf.Render(ctx, req.URLString(), RenderOptions{})
	if err != nil {
		return nil, err
	}
	return &types.Response{
		StatusCode:    200, // Rod does not expose the document status
		Body:          []byte(r.HTML),
		Request:       req,
		FinalURL:      r.FinalURL,
		FetchDuration: r.Duration,
	}, nil
}

// Close shuts down the browser if it was launched.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

func randomWindowSize() string {
	sizes := []string{"1920,1080", "1366,768", "1536,864", "1440,900", "1280,720"}
	return sizes[rand.Intn(len(sizes))]
}
