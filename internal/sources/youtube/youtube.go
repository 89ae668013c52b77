// Package youtube collects videos, statistics and top comments through the
// YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Collector fetches YouTube videos for keywords.
type Collector struct {
	cfg    *config.YouTubeConfig
	http   *fetcher.HTTPFetcher
	logger *slog.Logger
	now    func() time.Time
}

// New creates a YouTube collector.
func New(cfg *config.YouTubeConfig, client *fetcher.HTTPFetcher, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		http:   client,
		logger: logger.With("component", "youtube_collector"),
		now:    time.Now,
	}
}

// Name implements the collector contract.
func (c *Collector) Name() types.Source { return types.SourceYouTube }

// Collect implements the collector contract. The API key is required.
func (c *Collector) Collect(ctx context.Context, keywords []string) (*types.Batch, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube: %w (set YOUTUBE_API_KEY)", types.ErrNoCredentials)
	}
	if len(keywords) == 0 {
		return nil, types.ErrNoKeywords
	}
	batch := types.NewBatch(types.SourceYouTube, keywords, "data_api_v3")

	var failed int
	for _, kw := range keywords {
		videos, err := c.collectKeyword(ctx, kw)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			failed++
			c.logger.Warn("youtube keyword failed", "keyword", kw, "error", err)
			batch.Note(fmt.Sprintf("%s: %v", kw, err))
			if isQuotaError(err) {
				// the remaining keywords would fail the same way
				break
			}
			continue
		}
		for _, v := range videos {
			batch.Add(v)
		}
	}
	if failed > 0 && batch.Len() == 0 {
		return batch, fmt.Errorf("youtube collection failed for %d keywords", failed)
	}

	c.logger.Info("youtube collection complete", "keywords", len(keywords), "videos", batch.Len())
	return batch, nil
}

func (c *Collector) collectKeyword(ctx context.Context, kw string) ([]*types.Video, error) {
	ids, err := c.search(ctx, kw)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	videos, err := c.details(ctx, ids, kw)
	if err != nil {
		return nil, fmt.Errorf("videos: %w", err)
	}

	if c.cfg.MaxComments > 0 {
		for _, v := range videos {
			comments, err := c.comments(ctx, v.ID)
			if err != nil {
				// comments disabled is common and not an error for the run
				c.logger.Debug("comments unavailable", "video", v.ID, "error", err)
				continue
			}
			v.Comments = comments
		}
	}
	return videos, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

func (c *Collector) search(ctx context.Context, kw string) ([]string, error) {
	q := url.Values{
		"part":       {"snippet"},
		"q":          {kw},
		"type":       {"video"},
		"maxResults": {fmt.Sprint(c.cfg.MaxResults)},
		"order":      {c.cfg.Order},
		"key":        {c.cfg.APIKey},
	}
	if after := c.publishedAfter(); !after.IsZero() {
		q.Set("publishedAfter", after.Format(time.RFC3339))
	}
	if c.cfg.RegionCode != "" {
		q.Set("regionCode", c.cfg.RegionCode)
	}

	var out searchResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/search", q, nil, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Items))
	for _, it := range out.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	return ids, nil
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			Description  string    `json:"description"`
			ChannelID    string    `json:"channelId"`
			ChannelTitle string    `json:"channelTitle"`
			PublishedAt  time.Time `json:"publishedAt"`
			Tags         []string  `json:"tags"`
			CategoryID   string    `json:"categoryId"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    int64 `json:"viewCount,string"`
			LikeCount    int64 `json:"likeCount,string"`
			CommentCount int64 `json:"commentCount,string"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *Collector) details(ctx context.Context, ids []string, kw string) ([]*types.Video, error) {
	q := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"id":   {strings.Join(ids, ",")},
		"key":  {c.cfg.APIKey},
	}
	var out videosResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/videos", q, nil, &out); err != nil {
		return nil, err
	}

	videos := make([]*types.Video, 0, len(out.Items))
	for _, it := range out.Items {
		s := it.Snippet
		videos = append(videos, &types.Video{
			Meta:         types.Meta{Keyword: kw},
			ID:           it.ID,
			Title:        s.Title,
			Description:  s.Description,
			ChannelID:    s.ChannelID,
			ChannelTitle: s.ChannelTitle,
			PublishedAt:  s.PublishedAt,
			Tags:         s.Tags,
			CategoryID:   s.CategoryID,
			ViewCount:    it.Statistics.ViewCount,
			LikeCount:    it.Statistics.LikeCount,
			CommentCount: it.Statistics.CommentCount,
			Duration:     it.ContentDetails.Duration,
			Thumbnail:    bestThumbnail(s.Thumbnails),
			URL:          "https://www.youtube.com/watch?v=" + it.ID,
		})
	}
	return videos, nil
}

type commentsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				ID      string `json:"id"`
				Snippet struct {
					AuthorDisplayName string    `json:"authorDisplayName"`
					TextOriginal      string    `json:"textOriginal"`
					TextDisplay       string    `json:"textDisplay"`
					LikeCount         int64     `json:"likeCount"`
					PublishedAt       time.Time `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *Collector) comments(ctx context.Context, videoID string) ([]types.Comment, error) {
	q := url.Values{
		"part":       {"snippet"},
		"videoId":    {videoID},
		"maxResults": {fmt.Sprint(min(c.cfg.MaxComments, 100))},
		"order":      {"relevance"},
		"textFormat": {"plainText"},
		"key":        {c.cfg.APIKey},
	}
	var out commentsResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/commentThreads", q, nil, &out); err != nil {
		return nil, err
	}

	comments := make([]types.Comment, 0, len(out.Items))
	for _, it := range out.Items {
		tl := it.Snippet.TopLevelComment
		text := tl.Snippet.TextOriginal
		if text == "" {
			text = tl.Snippet.TextDisplay
		}
		comments = append(comments, types.Comment{
			ID:          tl.ID,
			Author:      tl.Snippet.AuthorDisplayName,
			Text:        text,
			LikeCount:   tl.Snippet.LikeCount,
			PublishedAt: tl.Snippet.PublishedAt,
		})
	}
	return comments, nil
}

// publishedAfter converts the configured window name to a cutoff.
func (c *Collector) publishedAfter() time.Time {
	now := c.now().UTC()
	switch c.cfg.PublishedAfter {
	case "hour":
		return now.Add(-time.Hour)
	case "day":
		return now.AddDate(0, 0, -1)
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

func bestThumbnail(thumbs map[string]struct {
	URL string `json:"url"`
}) string {
	for _, size := range []string{"maxres", "high", "medium", "default"} {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// isQuotaError reports a daily quota or key problem, both signalled as 403.
func isQuotaError(err error) bool {
	var fe *types.FetchError
	return errors.As(err, &fe) && fe.StatusCode == 403 && strings.Contains(strings.ToLower(fe.Error()), "quota")
}
