package twitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Selector chains for Nitter's timeline markup. Forks differ slightly, so
// each field lists a few candidates.
var (
	selItem     = []string{"div.timeline-item", "div.tweet", "article"}
	selLink     = []string{"a.tweet-link", "span.tweet-date a", "a[href*='/status/']"}
	selContent  = []string{"div.tweet-content", "div.tweet-text", "p.tweet-content"}
	selUsername = []string{"a.username", "span.username"}
	selFullname = []string{"a.fullname", "span.fullname", "strong"}
	selDate     = []string{"span.tweet-date a", "time"}

	selReplies  = []string{"xpath:.//span[contains(@class,'icon-comment')]/.."}
	selRetweets = []string{"xpath:.//span[contains(@class,'icon-retweet')]/.."}
	selQuotes   = []string{"xpath:.//span[contains(@class,'icon-quote')]/.."}
	selLikes    = []string{"xpath:.//span[contains(@class,'icon-heart')]/.."}
)

// statusRe captures the handle and numeric ID from a status link.
var statusRe = regexp.MustCompile(`/([A-Za-z0-9_]{1,15})/status/(\d+)`)

// nitterDateLayout is the title attribute of a tweet's date link.
const nitterDateLayout = "Jan 2, 2006 · 3:04 PM MST"

// Nitter scrapes search results from a rotating set of Nitter instances.
type Nitter struct {
	instances []string
	http      *fetcher.HTTPFetcher
	logger    *slog.Logger

	mu      sync.Mutex
	healthy int // index of the last instance that answered
}

// NewNitter creates a Nitter scraper over the given instances.
func NewNitter(instances []string, client *fetcher.HTTPFetcher, logger *slog.Logger) *Nitter {
	trimmed := make([]string, 0, len(instances))
	for _, inst := range instances {
		if inst = strings.TrimRight(strings.TrimSpace(inst), "/"); inst != "" {
			trimmed = append(trimmed, inst)
		}
	}
	return &Nitter{instances: trimmed, http: client, logger: logger}
}

// Len returns the number of configured instances.
func (n *Nitter) Len() int { return len(n.instances) }

// Search tries instances starting from the last healthy one. For each it
// scrapes the HTML search page and falls back to the instance's RSS feed.
func (n *Nitter) Search(ctx context.Context, kw string, limit int) ([]*types.Tweet, string, error) {
	n.mu.Lock()
	start := n.healthy
	n.mu.Unlock()

	var errs []error
	for i := range n.instances {
		idx := (start + i) % len(n.instances)
		inst := n.instances[idx]

		tweets, err := n.searchHTML(ctx, inst, kw)
		method := MethodNitter
		if err != nil || len(tweets) == 0 {
			n.logger.Debug("nitter html failed, trying rss", "instance", inst, "error", err)
			tweets, err = n.searchRSS(ctx, inst, kw)
			method = MethodNitterRSS
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if err != nil || len(tweets) == 0 {
			if err == nil {
				err = errors.New("no results")
			}
			errs = append(errs, fmt.Errorf("%s: %w", inst, err))
			continue
		}

		n.mu.Lock()
		n.healthy = idx
		n.mu.Unlock()

		if limit > 0 && len(tweets) > limit {
			tweets = tweets[:limit]
		}
		return tweets, method, nil
	}
	return nil, "", errors.Join(errs...)
}

func (n *Nitter) searchHTML(ctx context.Context, inst, kw string) ([]*types.Tweet, error) {
	resp, err := n.http.Get(ctx, inst+"/search", url.Values{"f": {"tweets"}, "q": {kw}}, nil)
	if err != nil {
		return nil, err
	}
	if kind := fetcher.DetectChallenge(string(resp.Body)); kind != fetcher.ChallengeNone {
		return nil, fmt.Errorf("%w: %s", types.ErrBlocked, kind)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return ParseTimeline(doc, inst, kw), nil
}

// ParseTimeline extracts tweets from a Nitter search page.
func ParseTimeline(doc *goquery.Document, base, kw string) []*types.Tweet {
	items, _ := parser.FindAny(doc.Selection, selItem...)

	var tweets []*types.Tweet
	seen := make(map[string]bool)
	items.Each(func(_ int, item *goquery.Selection) {
		if item.HasClass("show-more") {
			return
		}
		link := parser.FirstAttr(item, "href", selLink...)
		m := statusRe.FindStringSubmatch(link)
		if m == nil || seen[m[2]] {
			return
		}
		seen[m[2]] = true

		text := parser.FirstText(item, selContent...)
		if text == "" {
			return
		}
		t := &types.Tweet{
			Meta:         types.Meta{Keyword: kw},
			ID:           m[2],
			Text:         text,
			Username:     strings.TrimPrefix(parser.FirstText(item, selUsername...), "@"),
			DisplayName:  parser.FirstText(item, selFullname...),
			ReplyCount:   int(parser.ParseCount(parser.FirstText(item, selReplies...))),
			RetweetCount: int(parser.ParseCount(parser.FirstText(item, selRetweets...))),
			QuoteCount:   int(parser.ParseCount(parser.FirstText(item, selQuotes...))),
			LikeCount:    int(parser.ParseCount(parser.FirstText(item, selLikes...))),
			Hashtags:     parser.Hashtags(text),
			Mentions:     parser.Mentions(text),
		}
		if ts, err := time.Parse(nitterDateLayout, parser.FirstAttr(item, "title", selDate...)); err == nil {
			t.CreatedAt = ts.UTC()
		}
		if t.Username == "" {
			t.Username = m[1]
		}
		t.URL = tweetURL(t.Username, t.ID)
		tweets = append(tweets, t)
	})
	return tweets
}

func (n *Nitter) searchRSS(ctx context.Context, inst, kw string) ([]*types.Tweet, error) {
	resp, err := n.http.Get(ctx, inst+"/search/rss", url.Values{"f": {"tweets"}, "q": {kw}}, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{URL: resp.FinalURL, Err: err}
	}

	tweets := make([]*types.Tweet, 0, len(feed.Items))
	for _, item := range feed.Items {
		m := statusRe.FindStringSubmatch(item.Link)
		if m == nil {
			continue
		}
		text := item.Title
		if text == "" {
			text = parser.Clean(item.Description)
		}
		t := &types.Tweet{
			Meta:     types.Meta{Keyword: kw},
			ID:       m[2],
			Text:     text,
			Username: m[1],
			Hashtags: parser.Hashtags(text),
			Mentions: parser.Mentions(text),
		}
		if item.PublishedParsed != nil {
			t.CreatedAt = item.PublishedParsed.UTC()
		}
		t.URL = tweetURL(t.Username, t.ID)
		tweets = append(tweets, t)
	}
	return tweets, nil
}
