// Package twitter collects posts from Twitter/X. The official API v2 is used
// when a bearer token is configured; otherwise, or when it is exhausted,
// public Nitter instances are scraped. As a last resort flagged mock posts
// are generated.
package twitter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Collection methods, in fallback order.
const (
	MethodAPI       = "api_v2"
	MethodNitter    = "nitter"
	MethodNitterRSS = "nitter_rss"
	MethodMock      = "mock"
)

// Collector fetches tweets for keywords.
type Collector struct {
	cfg    *config.TwitterConfig
	http   *fetcher.HTTPFetcher
	nitter *Nitter
	logger *slog.Logger
}

// New creates a Twitter/X collector.
func New(cfg *config.TwitterConfig, client *fetcher.HTTPFetcher, logger *slog.Logger) *Collector {
	logger = logger.With("component", "twitter_collector")
	return &Collector{
		cfg:    cfg,
		http:   client,
		nitter: NewNitter(cfg.NitterInstances, client, logger),
		logger: logger,
	}
}

// Name implements the collector contract.
func (c *Collector) Name() types.Source { return types.SourceTwitter }

// Collect implements the collector contract. Each keyword walks the
// fallback chain independently; once the API fails it is skipped for the
// rest of the run.
func (c *Collector) Collect(ctx context.Context, keywords []string) (*types.Batch, error) {
	if len(keywords) == 0 {
		return nil, types.ErrNoKeywords
	}
	batch := types.NewBatch(types.SourceTwitter, keywords, "")
	methods := make(map[string]int)

	apiUsable := c.cfg.BearerToken != ""
	for i, kw := range keywords {
		tweets, method, err := c.collectKeyword(ctx, kw, &apiUsable)
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
		if err != nil && c.cfg.MockFallback {
			c.logger.Warn("live twitter sources failed, generating mock posts", "keyword", kw, "error", err)
			tweets, method, err = MockTweets(kw, i, c.cfg.MockPerKeyword), MethodMock, nil
		}
		if err != nil {
			batch.Note(fmt.Sprintf("%s: %v", kw, err))
			continue
		}
		methods[method]++
		for _, t := range tweets {
			t.Method = method
			batch.Add(t)
		}
	}

	batch.Method = dominant(methods)
	if batch.Len() == 0 && len(batch.Notes) > 0 {
		return batch, fmt.Errorf("twitter collection failed for every keyword")
	}
	c.logger.Info("twitter collection complete", "keywords", len(keywords), "tweets", batch.Len(), "methods", methods)
	return batch, nil
}

func (c *Collector) collectKeyword(ctx context.Context, kw string, apiUsable *bool) ([]*types.Tweet, string, error) {
	var lastErr error

	if *apiUsable {
		tweets, err := c.searchAPI(ctx, kw)
		if err == nil {
			return tweets, MethodAPI, nil
		}
		c.logger.Warn("twitter api failed, disabling for this run", "keyword", kw, "error", err)
		*apiUsable = false
		lastErr = err
	}

	if c.cfg.NitterEnabled && c.nitter.Len() > 0 {
		tweets, method, err := c.nitter.Search(ctx, kw, c.cfg.MaxResults)
		if err == nil && len(tweets) > 0 {
			return tweets, method, nil
		}
		if err == nil {
			err = fmt.Errorf("nitter returned no posts")
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no bearer token and nitter disabled", types.ErrNoCredentials)
	}
	return nil, "", lastErr
}

func dominant(counts map[string]int) string {
	best, n := "", -1
	for _, m := range []string{MethodAPI, MethodNitter, MethodNitterRSS, MethodMock} {
		if counts[m] > n {
			best, n = m, counts[m]
		}
	}
	if n <= 0 {
		return ""
	}
	return best
}
