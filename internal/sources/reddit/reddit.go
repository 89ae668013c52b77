// Package reddit collects submissions matching tracked keywords. It prefers
// the OAuth API, falls back to the public JSON listings and finally to the
// RSS search feed when Reddit blocks anonymous JSON.
package reddit

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Collection methods recorded on the batch.
const (
	MethodOAuth  = "oauth"
	MethodPublic = "public_json"
	MethodRSS    = "rss"
)

// Collector fetches Reddit posts.
type Collector struct {
	cfg    *config.RedditConfig
	http   *fetcher.HTTPFetcher
	logger *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New creates a Reddit collector.
func New(cfg *config.RedditConfig, client *fetcher.HTTPFetcher, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		http:   client,
		logger: logger.With("component", "reddit_collector"),
	}
}

// Name implements the collector contract.
func (c *Collector) Name() types.Source { return types.SourceReddit }

// Collect implements the collector contract.
func (c *Collector) Collect(ctx context.Context, keywords []string) (*types.Batch, error) {
	if len(keywords) == 0 {
		return nil, types.ErrNoKeywords
	}

	method := MethodPublic
	if c.hasCredentials() {
		if _, err := c.accessToken(ctx); err != nil {
			c.logger.Warn("reddit oauth failed, using public endpoints", "error", err)
		} else {
			method = MethodOAuth
		}
	}
	batch := types.NewBatch(types.SourceReddit, keywords, method)

	var failed int
	for _, kw := range keywords {
		posts, used, err := c.searchKeyword(ctx, kw, method)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			failed++
			c.logger.Warn("reddit search failed", "keyword", kw, "error", err)
			batch.Note(fmt.Sprintf("%s: %v", kw, err))
			continue
		}
		if used != method {
			batch.Method = used
		}
		for _, p := range posts {
			batch.Add(p)
		}
	}
	if failed == len(keywords) {
		return batch, fmt.Errorf("reddit search failed for every keyword")
	}

	if c.cfg.TrendingSubreddits > 0 {
		subs, err := c.PopularSubreddits(ctx, c.cfg.TrendingSubreddits)
		if err != nil {
			c.logger.Debug("popular subreddits unavailable", "error", err)
		} else {
			batch.TrendingSubreddits = subs
		}
	}

	c.logger.Info("reddit collection complete", "keywords", len(keywords), "posts", batch.Len(), "method", batch.Method)
	return batch, nil
}

// searchKeyword searches every configured subreddit for kw, degrading to
// RSS per subreddit if JSON is refused. It fails only when no subreddit
// could be searched. The returned method is RSS if any subreddit needed it.
func (c *Collector) searchKeyword(ctx context.Context, kw, method string) ([]*types.Post, string, error) {
	var (
		all     []*types.Post
		used    = method
		lastErr error
		ok      int
	)
	for _, sub := range c.cfg.Subreddits {
		posts, err := c.searchJSON(ctx, sub, kw, method)
		if err != nil && c.cfg.RSSFallback && method == MethodPublic && errors.Is(err, types.ErrBlocked) {
			c.logger.Debug("reddit json blocked, trying rss", "subreddit", sub, "keyword", kw)
			posts, err = c.searchRSS(ctx, sub, kw)
			if err == nil {
				used = MethodRSS
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return all, used, ctx.Err()
			}
			c.logger.Debug("reddit subreddit search failed", "subreddit", sub, "keyword", kw, "error", err)
			lastErr = err
			continue
		}
		ok++
		all = append(all, posts...)
	}
	if ok == 0 && lastErr != nil {
		return nil, used, lastErr
	}
	return all, used, nil
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string   `json:"kind"`
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Domain      string  `json:"domain"`
	Flair       string  `json:"link_flair_text"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	Gilded      int     `json:"gilded"`
	CreatedUTC  float64 `json:"created_utc"`
	IsSelf      bool    `json:"is_self"`
	Over18      bool    `json:"over_18"`
	Spoiler     bool    `json:"spoiler"`
	Stickied    bool    `json:"stickied"`
	Locked      bool    `json:"locked"`
	Archived    bool    `json:"archived"`
}

func (d postData) toPost(keyword, base string) *types.Post {
	return &types.Post{
		Meta:        types.Meta{Keyword: keyword},
		ID:          d.ID,
		Title:       d.Title,
		Selftext:    d.Selftext,
		Subreddit:   d.Subreddit,
		Author:      d.Author,
		URL:         d.URL,
		Permalink:   parser.ResolveURL(base, d.Permalink),
		Domain:      d.Domain,
		Flair:       d.Flair,
		Score:       d.Score,
		UpvoteRatio: d.UpvoteRatio,
		NumComments: d.NumComments,
		Gilded:      d.Gilded,
		CreatedUTC:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
		IsSelf:      d.IsSelf,
		Over18:      d.Over18,
		Spoiler:     d.Spoiler,
		Stickied:    d.Stickied,
		Locked:      d.Locked,
		Archived:    d.Archived,
	}
}

func (c *Collector) searchJSON(ctx context.Context, sub, kw, method string) ([]*types.Post, error) {
	q := url.Values{
		"q":     {kw},
		"sort":  {c.cfg.Sort},
		"t":     {c.cfg.TimeFilter},
		"limit": {fmt.Sprint(c.cfg.Limit)},
	}
	headers := http.Header{"User-Agent": {c.cfg.UserAgent}}

	base := c.cfg.PublicURL
	path := searchPath(sub) + ".json"
	if method == MethodOAuth {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		base = c.cfg.APIURL
		path = searchPath(sub)
		headers.Set("Authorization", "bearer "+token)
	}
	if !isAll(sub) {
		q.Set("restrict_sr", "on")
	}

	var out listing
	if err := c.http.GetJSON(ctx, base+path, q, headers, &out); err != nil {
		return nil, err
	}

	posts := make([]*types.Post, 0, len(out.Data.Children))
	for _, child := range out.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data.toPost(kw, c.cfg.PublicURL))
	}
	return posts, nil
}

func (c *Collector) searchRSS(ctx context.Context, sub, kw string) ([]*types.Post, error) {
	q := url.Values{"q": {kw}, "sort": {c.cfg.Sort}, "t": {c.cfg.TimeFilter}}
	if !isAll(sub) {
		q.Set("restrict_sr", "on")
	}
	resp, err := c.http.Get(ctx, c.cfg.PublicURL+searchPath(sub)+".rss", q, http.Header{"User-Agent": {c.cfg.UserAgent}})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{URL: resp.FinalURL, Err: err}
	}

	posts := make([]*types.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		p := &types.Post{
			Meta:      types.Meta{Keyword: kw},
			ID:        strings.TrimPrefix(item.GUID, "t3_"),
			Title:     item.Title,
			Selftext:  item.Content,
			Subreddit: subredditFromCategories(item.Categories, sub),
			URL:       item.Link,
			Permalink: item.Link,
		}
		if len(item.Authors) > 0 {
			p.Author = strings.TrimPrefix(item.Authors[0].Name, "/u/")
		}
		if item.PublishedParsed != nil {
			p.CreatedUTC = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			p.CreatedUTC = item.UpdatedParsed.UTC()
		}
		if p.ID == "" {
			p.ID = fetcher.URLKey(item.Link)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

type subredditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				DisplayName       string `json:"display_name"`
				Title             string `json:"title"`
				PublicDescription string `json:"public_description"`
				Subscribers       int64  `json:"subscribers"`
				ActiveUserCount   int64  `json:"active_user_count"`
				URL               string `json:"url"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// PopularSubreddits returns the currently popular subreddits.
func (c *Collector) PopularSubreddits(ctx context.Context, limit int) ([]types.SubredditInfo, error) {
	headers := http.Header{"User-Agent": {c.cfg.UserAgent}}
	endpoint := c.cfg.PublicURL + "/subreddits/popular.json"
	if token, err := c.accessToken(ctx); err == nil && token != "" {
		endpoint = c.cfg.APIURL + "/subreddits/popular"
		headers.Set("Authorization", "bearer "+token)
	}

	var out subredditListing
	if err := c.http.GetJSON(ctx, endpoint, url.Values{"limit": {fmt.Sprint(limit)}}, headers, &out); err != nil {
		return nil, err
	}
	subs := make([]types.SubredditInfo, 0, len(out.Data.Children))
	for _, child := range out.Data.Children {
		d := child.Data
		subs = append(subs, types.SubredditInfo{
			Name:        d.DisplayName,
			Title:       d.Title,
			Description: d.PublicDescription,
			Subscribers: d.Subscribers,
			ActiveUsers: d.ActiveUserCount,
			URL:         parser.ResolveURL(c.cfg.PublicURL, d.URL),
		})
	}
	return subs, nil
}

func (c *Collector) hasCredentials() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// accessToken returns a cached application-only OAuth token, refreshing it
// a minute before expiry.
func (c *Collector) accessToken(ctx context.Context) (string, error) {
	if !c.hasCredentials() {
		return "", types.ErrNoCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	creds := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	headers := http.Header{
		"User-Agent":    {c.cfg.UserAgent},
		"Authorization": {"Basic " + creds},
	}

	resp, err := c.http.PostForm(ctx, c.cfg.AuthURL, url.Values{"grant_type": {"client_credentials"}}, headers)
	if err != nil {
		return "", fmt.Errorf("reddit token: %w", err)
	}
	var tok tokenResponse
	if err := resp.JSON(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit token: %s", tok.Error)
	}

	c.token = tok.AccessToken
	c.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func isAll(sub string) bool {
	return sub == "" || strings.EqualFold(sub, "all")
}

func searchPath(sub string) string {
	if isAll(sub) {
		return "/search"
	}
	return "/r/" + url.PathEscape(sub) + "/search"
}

func subredditFromCategories(cats []string, fallback string) string {
	for _, c := range cats {
		if c = strings.TrimPrefix(c, "r/"); c != "" {
			return c
		}
	}
	return fallback
}
