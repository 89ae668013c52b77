package types

import "time"

// Batch is the output of one source collection: the records plus any
// source-level side data.
type Batch struct {
	Source      Source    `json:"source"`
	Keywords    []string  `json:"keywords"`
	Method      string    `json:"collection_method"`
	CollectedAt time.Time `json:"collection_timestamp"`
	Records     []Record  `json:"-"`

	// Google Trends extras, keyed by keyword.
	Related  map[string]RelatedQueries   `json:"related_queries,omitempty"`
	Regional map[string][]RegionInterest `json:"regional_interest,omitempty"`

	// Reddit extra.
	TrendingSubreddits []SubredditInfo `json:"trending_subreddits,omitempty"`

	// Notes collects non-fatal problems, e.g. a keyword that failed.
	Notes []string `json:"notes,omitempty"`
}

// NewBatch returns an empty batch stamped with the current time.
func NewBatch(src Source, keywords []string, method string) *Batch {
	return &Batch{
		Source:      src,
		Keywords:    append([]string(nil), keywords...),
		Method:      method,
		CollectedAt: time.Now().UTC(),
	}
}

// Add appends records to the batch.
func (b *Batch) Add(recs ...Record) {
	b.Records = append(b.Records, recs...)
}

// Note records a non-fatal problem.
func (b *Batch) Note(msg string) {
	b.Notes = append(b.Notes, msg)
}

// Len returns the number of records.
func (b *Batch) Len() int { return len(b.Records) }

// CountByKeyword returns how many records each search keyword produced.
func (b *Batch) CountByKeyword() map[string]int {
	out := make(map[string]int)
	for _, r := range b.Records {
		out[r.SearchKeyword()]++
	}
	return out
}
