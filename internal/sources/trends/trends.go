// Package trends collects relative search interest, related queries and
// regional interest from Google Trends' internal widget API.
package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Collector fetches Google Trends data in batches of up to five keywords,
// the most one comparison request accepts.
type Collector struct {
	cfg    *config.TrendsConfig
	http   *fetcher.HTTPFetcher
	logger *slog.Logger
	primed bool
}

// New creates a Google Trends collector.
func New(cfg *config.TrendsConfig, client *fetcher.HTTPFetcher, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		http:   client,
		logger: logger.With("component", "trends_collector"),
	}
}

// Name implements the collector contract.
func (c *Collector) Name() types.Source { return types.SourceGoogle }

// widget is one entry of the explore response. Request is passed back
// verbatim to the widgetdata endpoints.
type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

// Collect implements the collector contract.
func (c *Collector) Collect(ctx context.Context, keywords []string) (*types.Batch, error) {
	if len(keywords) == 0 {
		return nil, types.ErrNoKeywords
	}
	batch := types.NewBatch(types.SourceGoogle, keywords, "widget_api")
	batch.Related = make(map[string]types.RelatedQueries)
	batch.Regional = make(map[string][]types.RegionInterest)

	if err := c.prime(ctx); err != nil {
		c.logger.Warn("could not prime trends session", "error", err)
	}

	var failed int
	groups := chunk(keywords, c.cfg.BatchSize)
	for _, group := range groups {
		if err := c.collectGroup(ctx, group, batch); err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			failed++
			c.logger.Warn("trends batch failed", "keywords", group, "error", err)
			batch.Note(fmt.Sprintf("batch %v: %v", group, err))
		}
	}
	if failed == len(groups) {
		return batch, fmt.Errorf("all %d trends batches failed", failed)
	}

	c.logger.Info("trends collection complete",
		"keywords", len(keywords),
		"points", batch.Len(),
		"related", len(batch.Related),
		"regions", len(batch.Regional),
	)
	return batch, nil
}

// prime visits the landing page once so the cookie jar holds the NID cookie
// the API expects.
func (c *Collector) prime(ctx context.Context) error {
	if c.primed {
		return nil
	}
	_, err := c.http.Get(ctx, c.cfg.BaseURL+"/", url.Values{"geo": {c.cfg.Geo}}, nil)
	if err == nil {
		c.primed = true
	}
	return err
}

func (c *Collector) collectGroup(ctx context.Context, keywords []string, batch *types.Batch) error {
	widgets, err := c.explore(ctx, keywords)
	if err != nil {
		return err
	}

	for _, w := range widgets {
		switch {
		case w.ID == "TIMESERIES":
			points, err := c.interestOverTime(ctx, w, keywords)
			if err != nil {
				return fmt.Errorf("interest over time: %w", err)
			}
			for _, p := range points {
				batch.Add(p)
			}

		case strings.HasPrefix(w.ID, "RELATED_QUERIES") && c.cfg.RelatedQueries:
			kw := widgetKeyword(w)
			if kw == "" {
				continue
			}
			rq, err := c.relatedQueries(ctx, w)
			if err != nil {
				c.logger.Debug("related queries failed", "keyword", kw, "error", err)
				continue
			}
			batch.Related[kw] = rq

		case strings.HasPrefix(w.ID, "GEO_MAP") && c.cfg.RegionalInterest:
			regions, err := c.regionalInterest(ctx, w, keywords)
			if err != nil {
				c.logger.Debug("regional interest failed", "error", err)
				continue
			}
			for kw, r := range regions {
				if _, done := batch.Regional[kw]; !done {
					batch.Regional[kw] = r
				}
			}
		}
	}
	return nil
}

func (c *Collector) explore(ctx context.Context, keywords []string) ([]widget, error) {
	items := make([]comparisonItem, 0, len(keywords))
	for _, kw := range keywords {
		items = append(items, comparisonItem{Keyword: kw, Geo: c.cfg.Geo, Time: c.cfg.Timeframe})
	}
	req, err := json.Marshal(map[string]any{
		"comparisonItem": items,
		"category":       0,
		"property":       "",
	})
	if err != nil {
		return nil, err
	}

	var out exploreResponse
	if err := c.getWidgetJSON(ctx, "/trends/api/explore", string(req), "", &out); err != nil {
		return nil, err
	}
	if len(out.Widgets) == 0 {
		return nil, fmt.Errorf("explore returned no widgets")
	}
	return out.Widgets, nil
}

type timelineResponse struct {
	Default struct {
		TimelineData []struct {
			Time      string `json:"time"`
			Value     []int  `json:"value"`
			HasData   []bool `json:"hasData"`
			IsPartial bool   `json:"isPartial"`
		} `json:"timelineData"`
	} `json:"default"`
}

func (c *Collector) interestOverTime(ctx context.Context, w widget, keywords []string) ([]*types.InterestPoint, error) {
	var out timelineResponse
	if err := c.getWidgetJSON(ctx, "/trends/api/widgetdata/multiline", string(w.Request), w.Token, &out); err != nil {
		return nil, err
	}

	layout := "2006-01-02"
	if strings.HasPrefix(c.cfg.Timeframe, "now") {
		layout = "2006-01-02T15:04"
	}

	var points []*types.InterestPoint
	for _, row := range out.Default.TimelineData {
		secs, err := strconv.ParseInt(row.Time, 10, 64)
		if err != nil {
			continue
		}
		ts := time.Unix(secs, 0).UTC()
		for i, v := range row.Value {
			if i >= len(keywords) {
				break
			}
			if i < len(row.HasData) && !row.HasData[i] {
				continue
			}
			points = append(points, &types.InterestPoint{
				Meta:    types.Meta{Keyword: keywords[i]},
				Date:    ts.Format(layout),
				Time:    ts,
				Value:   v,
				Partial: row.IsPartial,
			})
		}
	}
	return points, nil
}

type rankedResponse struct {
	Default struct {
		RankedList []struct {
			RankedKeyword []struct {
				Query          string `json:"query"`
				Value          int    `json:"value"`
				FormattedValue string `json:"formattedValue"`
			} `json:"rankedKeyword"`
		} `json:"rankedList"`
	} `json:"default"`
}

func (c *Collector) relatedQueries(ctx context.Context, w widget) (types.RelatedQueries, error) {
	var out rankedResponse
	if err := c.getWidgetJSON(ctx, "/trends/api/widgetdata/relatedsearches", string(w.Request), w.Token, &out); err != nil {
		return types.RelatedQueries{}, err
	}

	var rq types.RelatedQueries
	for i, list := range out.Default.RankedList {
		queries := make([]types.RelatedQuery, 0, len(list.RankedKeyword))
		for _, k := range list.RankedKeyword {
			queries = append(queries, types.RelatedQuery{Query: k.Query, Value: k.Value, FormattedValue: k.FormattedValue})
		}
		// Google returns top first, rising second.
		switch i {
		case 0:
			rq.Top = queries
		case 1:
			rq.Rising = queries
		}
	}
	return rq, nil
}

type geoResponse struct {
	Default struct {
		GeoMapData []struct {
			GeoCode string `json:"geoCode"`
			GeoName string `json:"geoName"`
			Value   []int  `json:"value"`
			HasData []bool `json:"hasData"`
		} `json:"geoMapData"`
	} `json:"default"`
}

func (c *Collector) regionalInterest(ctx context.Context, w widget, keywords []string) (map[string][]types.RegionInterest, error) {
	var out geoResponse
	if err := c.getWidgetJSON(ctx, "/trends/api/widgetdata/comparedgeo", string(w.Request), w.Token, &out); err != nil {
		return nil, err
	}

	regions := make(map[string][]types.RegionInterest)
	for _, g := range out.Default.GeoMapData {
		for i, v := range g.Value {
			if i >= len(keywords) || (i < len(g.HasData) && !g.HasData[i]) {
				continue
			}
			regions[keywords[i]] = append(regions[keywords[i]], types.RegionInterest{
				GeoCode: g.GeoCode,
				GeoName: g.GeoName,
				Value:   v,
			})
		}
	}
	return regions, nil
}

func (c *Collector) getWidgetJSON(ctx context.Context, path, req, token string, v any) error {
	q := url.Values{
		"hl":  {c.cfg.Language},
		"tz":  {strconv.Itoa(c.cfg.TZOffset)},
		"req": {req},
	}
	if token != "" {
		q.Set("token", token)
	}
	resp, err := c.http.Get(ctx, c.cfg.BaseURL+path, q, nil)
	if err != nil {
		return err
	}
	body, err := stripGuard(resp.Body)
	if err != nil {
		return &types.ParseError{URL: resp.FinalURL, Err: err}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &types.ParseError{URL: resp.FinalURL, Err: err}
	}
	return nil
}

// stripGuard removes the ")]}'" anti-JSON-hijacking prefix Google puts in
// front of API responses.
func stripGuard(body []byte) ([]byte, error) {
	i := bytes.IndexByte(body, '{')
	if i < 0 {
		return nil, types.ErrEmptyResponse
	}
	return body[i:], nil
}

// widgetKeyword digs the keyword out of a single-keyword widget request.
func widgetKeyword(w widget) string {
	var req struct {
		Restriction struct {
			ComplexKeywordsRestriction struct {
				Keyword []struct {
					Value string `json:"value"`
				} `json:"keyword"`
			} `json:"complexKeywordsRestriction"`
		} `json:"restriction"`
	}
	if err := json.Unmarshal(w.Request, &req); err != nil {
		return ""
	}
	kws := req.Restriction.ComplexKeywordsRestriction.Keyword
	if len(kws) == 0 {
		return ""
	}
	return kws[0].Value
}

func chunk(in []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for len(in) > size {
		out = append(out, in[:size])
		in = in[size:]
	}
	if len(in) > 0 {
		out = append(out, in)
	}
	return out
}
