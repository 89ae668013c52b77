package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// CollectionInfo describes the latest save into a document.
type CollectionInfo struct {
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
	TotalItems  int       `json:"total_items"  bson:"total_items"`
	Keywords    []string  `json:"keywords"     bson:"keywords"`
	Method      string    `json:"method"       bson:"method"`
}

// HistoryEntry records one save.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"   bson:"timestamp"`
	ItemsAdded int       `json:"items_added" bson:"items_added"`
	TotalItems int       `json:"total_items" bson:"total_items"`
	Keywords   []string  `json:"keywords"    bson:"keywords"`
	Method     string    `json:"method"      bson:"method"`
}

// KeywordStats aggregates the stored records of one keyword.
type KeywordStats struct {
	Items           int       `json:"items"            bson:"items"`
	TotalEngagement int64     `json:"total_engagement" bson:"total_engagement"`
	AvgEngagement   float64   `json:"avg_engagement"   bson:"avg_engagement"`
	LatestItem      time.Time `json:"latest_item"      bson:"latest_item"`
}

// Document is everything stored for one source: the merged records plus
// the side data some collectors produce.
type Document struct {
	Source types.Source   `json:"source"          bson:"_id"`
	Info   CollectionInfo `json:"collection_info" bson:"collection_info"`

	Posts    []*types.Post          `json:"posts,omitempty"              bson:"-"`
	Videos   []*types.Video         `json:"videos,omitempty"             bson:"-"`
	Tweets   []*types.Tweet         `json:"tweets,omitempty"             bson:"-"`
	Jobs     []*types.Job           `json:"jobs,omitempty"               bson:"-"`
	Interest []*types.InterestPoint `json:"interest_over_time,omitempty" bson:"-"`

	Related            map[string]types.RelatedQueries   `json:"related_queries,omitempty"     bson:"related_queries,omitempty"`
	Regional           map[string][]types.RegionInterest `json:"regional_interest,omitempty"   bson:"regional_interest,omitempty"`
	TrendingSubreddits []types.SubredditInfo             `json:"trending_subreddits,omitempty" bson:"trending_subreddits,omitempty"`

	KeywordStats map[string]KeywordStats `json:"keyword_statistics" bson:"keyword_statistics"`
	History      []HistoryEntry          `json:"collection_history" bson:"collection_history"`
}

// NewDocument returns an empty document for src.
func NewDocument(src types.Source) *Document {
	return &Document{
		Source:       src,
		KeywordStats: make(map[string]KeywordStats),
	}
}

// MergeResult reports the outcome of merging a batch.
type MergeResult struct {
	Source  types.Source `json:"source"`
	Added   int          `json:"added"`
	Updated int          `json:"updated"`
	Total   int          `json:"total"`

	// Changed holds the records that were inserted or modified.
	Changed []types.Record `json:"-"`
}

// Records returns the stored records regardless of source.
func (d *Document) Records() []types.Record {
	var out []types.Record
	switch d.Source {
	case types.SourceReddit:
		out = make([]types.Record, 0, len(d.Posts))
		for _, r := range d.Posts {
			out = append(out, r)
		}
	case types.SourceYouTube:
		out = make([]types.Record, 0, len(d.Videos))
		for _, r := range d.Videos {
			out = append(out, r)
		}
	case types.SourceTwitter:
		out = make([]types.Record, 0, len(d.Tweets))
		for _, r := range d.Tweets {
			out = append(out, r)
		}
	case types.SourceUpwork:
		out = make([]types.Record, 0, len(d.Jobs))
		for _, r := range d.Jobs {
			out = append(out, r)
		}
	case types.SourceGoogle:
		out = make([]types.Record, 0, len(d.Interest))
		for _, r := range d.Interest {
			out = append(out, r)
		}
	}
	return out
}

// Append adds a record to the slice matching its concrete type.
// Records of another source are ignored.
func (d *Document) Append(rec types.Record) bool {
	if rec.Source() != d.Source {
		return false
	}
	switch r := rec.(type) {
	case *types.Post:
		d.Posts = append(d.Posts, r)
	case *types.Video:
		d.Videos = append(d.Videos, r)
	case *types.Tweet:
		d.Tweets = append(d.Tweets, r)
	case *types.Job:
		d.Jobs = append(d.Jobs, r)
	case *types.InterestPoint:
		d.Interest = append(d.Interest, r)
	default:
		return false
	}
	return true
}

// Len returns the number of stored records.
func (d *Document) Len() int {
	return len(d.Posts) + len(d.Videos) + len(d.Tweets) + len(d.Jobs) + len(d.Interest)
}

// Merge folds a batch into the document. Records are keyed by ID: unseen
// records are appended, seen records that implement types.Merger absorb the
// newer copy, and other seen records keep the stored copy. historyCap bounds
// the collection history.
func (d *Document) Merge(batch *types.Batch, historyCap int) *MergeResult {
	res := &MergeResult{Source: d.Source}

	index := make(map[string]types.Record, d.Len())
	for _, rec := range d.Records() {
		index[rec.RecordID()] = rec
	}

	for _, rec := range batch.Records {
		id := rec.RecordID()
		if id == "" {
			continue
		}
		if existing, ok := index[id]; ok {
			if m, ok := existing.(types.Merger); ok {
				m.MergeFrom(rec)
				res.Updated++
				res.Changed = append(res.Changed, existing)
			}
			continue
		}
		if d.Append(rec) {
			index[id] = rec
			res.Added++
			res.Changed = append(res.Changed, rec)
		}
	}

	if len(d.Interest) > 1 {
		sort.SliceStable(d.Interest, func(i, j int) bool {
			a, b := d.Interest[i], d.Interest[j]
			if a.Keyword != b.Keyword {
				return a.Keyword < b.Keyword
			}
			return a.Time.Before(b.Time)
		})
	}

	for kw, rq := range batch.Related {
		if d.Related == nil {
			d.Related = make(map[string]types.RelatedQueries)
		}
		d.Related[kw] = rq
	}
	for kw, regions := range batch.Regional {
		if d.Regional == nil {
			d.Regional = make(map[string][]types.RegionInterest)
		}
		d.Regional[kw] = regions
	}
	if len(batch.TrendingSubreddits) > 0 {
		d.TrendingSubreddits = batch.TrendingSubreddits
	}

	stamp := batch.CollectedAt
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	res.Total = d.Len()
	d.Info = CollectionInfo{
		LastUpdated: stamp,
		TotalItems:  res.Total,
		Keywords:    batch.Keywords,
		Method:      batch.Method,
	}
	d.History = append(d.History, HistoryEntry{
		Timestamp:  stamp,
		ItemsAdded: res.Added,
		TotalItems: res.Total,
		Keywords:   batch.Keywords,
		Method:     batch.Method,
	})
	if historyCap > 0 && len(d.History) > historyCap {
		d.History = append([]HistoryEntry(nil), d.History[len(d.History)-historyCap:]...)
	}

	d.RecomputeStats()
	return res
}

// RecomputeStats rebuilds the per-keyword statistics from the records.
func (d *Document) RecomputeStats() {
	stats := make(map[string]KeywordStats)
	for _, rec := range d.Records() {
		kw := strings.ToLower(rec.SearchKeyword())
		if kw == "" {
			continue
		}
		s := stats[kw]
		s.Items++
		s.TotalEngagement += Engagement(rec)
		if t := ItemTime(rec); t.After(s.LatestItem) {
			s.LatestItem = t
		}
		stats[kw] = s
	}
	for kw, s := range stats {
		s.AvgEngagement = float64(s.TotalEngagement) / float64(s.Items)
		stats[kw] = s
	}
	d.KeywordStats = stats
}

// Engagement is a single comparable popularity figure per record: Reddit
// score, YouTube views, the sum of tweet interactions, or Trends interest.
func Engagement(rec types.Record) int64 {
	switch r := rec.(type) {
	case *types.Post:
		return int64(r.Score)
	case *types.Video:
		return r.ViewCount
	case *types.Tweet:
		return int64(r.Engagement())
	case *types.InterestPoint:
		return int64(r.Value)
	case *types.Job:
		return int64(r.Budget.Max)
	}
	return 0
}

// ItemTime is when the record was published upstream, falling back to its
// collection time.
func ItemTime(rec types.Record) time.Time {
	switch r := rec.(type) {
	case *types.Post:
		if !r.CreatedUTC.IsZero() {
			return r.CreatedUTC
		}
	case *types.Video:
		if !r.PublishedAt.IsZero() {
			return r.PublishedAt
		}
	case *types.Tweet:
		if !r.CreatedAt.IsZero() {
			return r.CreatedAt
		}
	case *types.InterestPoint:
		if !r.Time.IsZero() {
			return r.Time
		}
	}
	return rec.Collected()
}

// newRecord returns an empty record of the concrete type stored for src.
func newRecord(src types.Source) types.Record {
	switch src {
	case types.SourceReddit:
		return &types.Post{}
	case types.SourceYouTube:
		return &types.Video{}
	case types.SourceTwitter:
		return &types.Tweet{}
	case types.SourceUpwork:
		return &types.Job{}
	case types.SourceGoogle:
		return &types.InterestPoint{}
	}
	return nil
}
