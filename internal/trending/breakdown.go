package trending

import (
	"strings"

	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// SourceBreakdown is the per-source view of one tracked keyword.
type SourceBreakdown struct {
	Items int `json:"items"`

	// reddit
	AvgScore   float64  `json:"avg_score,omitempty"`
	Comments   int      `json:"total_comments,omitempty"`
	Subreddits []string `json:"subreddits,omitempty"`

	// youtube
	AvgViews   float64 `json:"avg_views,omitempty"`
	TotalLikes int64   `json:"total_likes,omitempty"`

	// twitter
	AvgLikes      float64 `json:"avg_likes,omitempty"`
	TotalRetweets int     `json:"total_retweets,omitempty"`

	// google
	AvgInterest  float64 `json:"avg_interest,omitempty"`
	PeakInterest int     `json:"peak_interest,omitempty"`
	Related      int     `json:"related_queries,omitempty"`

	// upwork
	AvgBudget float64 `json:"avg_budget,omitempty"`
}

// KeywordBreakdown is how one tracked keyword performs on every source.
type KeywordBreakdown struct {
	Keyword string                           `json:"keyword"`
	Total   int                              `json:"total_items"`
	Sources map[types.Source]SourceBreakdown `json:"sources"`
}

// Breakdown summarizes the stored records of each keyword per source.
// Keywords match the records' search keyword case-insensitively.
func Breakdown(docs map[types.Source]*storage.Document, keywords []string) []KeywordBreakdown {
	out := make([]KeywordBreakdown, 0, len(keywords))
	for _, kw := range keywords {
		kb := KeywordBreakdown{Keyword: kw, Sources: make(map[types.Source]SourceBreakdown)}
		for _, src := range types.AllSources() {
			doc := docs[src]
			if doc == nil {
				continue
			}
			sb := breakdownOf(doc, kw)
			if sb.Items == 0 {
				continue
			}
			kb.Sources[src] = sb
			kb.Total += sb.Items
		}
		out = append(out, kb)
	}
	return out
}

func breakdownOf(doc *storage.Document, kw string) SourceBreakdown {
	var sb SourceBreakdown
	match := func(rec types.Record) bool { return strings.EqualFold(rec.SearchKeyword(), kw) }

	switch doc.Source {
	case types.SourceReddit:
		var score int
		subs := make(map[string]bool)
		for _, p := range doc.Posts {
			if !match(p) {
				continue
			}
			sb.Items++
			score += p.Score
			sb.Comments += p.NumComments
			if p.Subreddit != "" && !subs[p.Subreddit] {
				subs[p.Subreddit] = true
				sb.Subreddits = append(sb.Subreddits, p.Subreddit)
			}
		}
		sb.AvgScore = avg(float64(score), sb.Items)

	case types.SourceYouTube:
		var views int64
		for _, v := range doc.Videos {
			if !match(v) {
				continue
			}
			sb.Items++
			views += v.ViewCount
			sb.TotalLikes += v.LikeCount
		}
		sb.AvgViews = avg(float64(views), sb.Items)

	case types.SourceTwitter:
		var likes int
		for _, t := range doc.Tweets {
			if !match(t) {
				continue
			}
			sb.Items++
			likes += t.LikeCount
			sb.TotalRetweets += t.RetweetCount
		}
		sb.AvgLikes = avg(float64(likes), sb.Items)

	case types.SourceGoogle:
		var total int
		for _, p := range doc.Interest {
			if !match(p) {
				continue
			}
			sb.Items++
			total += p.Value
			sb.PeakInterest = max(sb.PeakInterest, p.Value)
		}
		sb.AvgInterest = avg(float64(total), sb.Items)
		for seed, rq := range doc.Related {
			if strings.EqualFold(seed, kw) {
				sb.Related += len(rq.Top) + len(rq.Rising)
			}
		}

	case types.SourceUpwork:
		var budget float64
		var priced int
		for _, j := range doc.Jobs {
			if !match(j) {
				continue
			}
			sb.Items++
			if j.Budget.Max > 0 {
				budget += j.Budget.Max
				priced++
			}
		}
		sb.AvgBudget = avg(budget, priced)
	}
	return sb
}

func avg(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(total / float64(n))
}
