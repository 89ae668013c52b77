package api

import (
	"math"
	"sort"
	"strings"

	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Dataset is one Chart.js series.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	Fill            bool      `json:"fill"`
	Tension         float64   `json:"tension,omitempty"`
}

// ChartData is the Chart.js data object.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

func emptyChart() ChartData {
	return ChartData{Labels: []string{}, Datasets: []Dataset{}}
}

var palette = []string{
	"rgba(134, 168, 231, %s)",
	"rgba(255, 159, 159, %s)",
	"rgba(144, 238, 144, %s)",
	"rgba(255, 223, 129, %s)",
	"rgba(186, 159, 255, %s)",
	"rgba(173, 216, 230, %s)",
}

func color(i int, alpha string) string {
	return strings.Replace(palette[i%len(palette)], "%s", alpha, 1)
}

func docOf(docs map[types.Source]*storage.Document, src types.Source) *storage.Document {
	if d := docs[src]; d != nil {
		return d
	}
	return storage.NewDocument(src)
}

// KeywordFrequencyChart counts stored records per tracked keyword and source.
func KeywordFrequencyChart(docs map[types.Source]*storage.Document, keywords []string) ChartData {
	if len(keywords) == 0 {
		return emptyChart()
	}
	chart := ChartData{Labels: keywords}
	for i, src := range types.AllSources() {
		counts := make(map[string]int)
		for _, rec := range docOf(docs, src).Records() {
			counts[strings.ToLower(rec.SearchKeyword())]++
		}
		data := make([]float64, len(keywords))
		var nonzero bool
		for j, kw := range keywords {
			data[j] = float64(counts[strings.ToLower(kw)])
			nonzero = nonzero || data[j] > 0
		}
		if !nonzero {
			continue
		}
		chart.Datasets = append(chart.Datasets, Dataset{
			Label:           src.Label(),
			Data:            data,
			BackgroundColor: color(i, "0.8"),
			BorderColor:     color(i, "1"),
		})
	}
	if chart.Datasets == nil {
		chart.Datasets = []Dataset{}
	}
	return chart
}

// GoogleTrendsChart plots interest over time, one line per keyword.
func GoogleTrendsChart(doc *storage.Document) ChartData {
	if doc == nil || len(doc.Interest) == 0 {
		return emptyChart()
	}
	dateSet := make(map[string]bool)
	values := make(map[string]map[string]float64)
	var keywords []string
	for _, p := range doc.Interest {
		dateSet[p.Date] = true
		m := values[p.Keyword]
		if m == nil {
			m = make(map[string]float64)
			values[p.Keyword] = m
			keywords = append(keywords, p.Keyword)
		}
		m[p.Date] = float64(max(0, p.Value))
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	chart := ChartData{Labels: dates}
	for i, kw := range keywords {
		data := make([]float64, len(dates))
		for j, d := range dates {
			data[j] = values[kw][d]
		}
		chart.Datasets = append(chart.Datasets, Dataset{
			Label:           kw,
			Data:            data,
			BorderColor:     color(i, "1"),
			BackgroundColor: color(i, "0.2"),
			Tension:         0.4,
		})
	}
	return chart
}

// keywordGroups buckets a document's records by search keyword, keeping
// first-seen order.
func keywordGroups(recs []types.Record) ([]string, map[string][]types.Record) {
	var order []string
	groups := make(map[string][]types.Record)
	for _, r := range recs {
		kw := r.SearchKeyword()
		if _, ok := groups[kw]; !ok {
			order = append(order, kw)
		}
		groups[kw] = append(groups[kw], r)
	}
	return order, groups
}

// engagementChart builds one dataset per metric, averaging (or counting)
// over each keyword's records.
func engagementChart(doc *storage.Document, metrics []metric) ChartData {
	if doc == nil || doc.Len() == 0 {
		return emptyChart()
	}
	order, groups := keywordGroups(doc.Records())
	chart := ChartData{Labels: order}
	for i, m := range metrics {
		data := make([]float64, len(order))
		for j, kw := range order {
			data[j] = m.reduce(groups[kw], m.value)
		}
		chart.Datasets = append(chart.Datasets, Dataset{
			Label:           m.label,
			Data:            data,
			BackgroundColor: color(i, "0.8"),
			BorderColor:     color(i, "1"),
		})
	}
	return chart
}

type metric struct {
	label  string
	value  func(types.Record) float64
	reduce func([]types.Record, func(types.Record) float64) float64
}

func mean(recs []types.Record, v func(types.Record) float64) float64 {
	if len(recs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range recs {
		sum += v(r)
	}
	return math.Round(sum/float64(len(recs))*100) / 100
}

func count(recs []types.Record, _ func(types.Record) float64) float64 {
	return float64(len(recs))
}

// RedditEngagementChart shows average score, post count and average
// comments per keyword.
func RedditEngagementChart(doc *storage.Document) ChartData {
	post := func(f func(*types.Post) float64) func(types.Record) float64 {
		return func(r types.Record) float64 { return f(r.(*types.Post)) }
	}
	return engagementChart(doc, []metric{
		{"Average Score", post(func(p *types.Post) float64 { return float64(p.Score) }), mean},
		{"Total Posts", nil, count},
		{"Average Comments", post(func(p *types.Post) float64 { return float64(p.NumComments) }), mean},
	})
}

// YouTubeEngagementChart shows average views, likes and comments per keyword.
func YouTubeEngagementChart(doc *storage.Document) ChartData {
	video := func(f func(*types.Video) float64) func(types.Record) float64 {
		return func(r types.Record) float64 { return f(r.(*types.Video)) }
	}
	return engagementChart(doc, []metric{
		{"Average Views", video(func(v *types.Video) float64 { return float64(v.ViewCount) }), mean},
		{"Average Likes", video(func(v *types.Video) float64 { return float64(v.LikeCount) }), mean},
		{"Average Comments", video(func(v *types.Video) float64 { return float64(v.CommentCount) }), mean},
	})
}

// TwitterEngagementChart shows average likes, average retweets and tweet
// count per keyword.
func TwitterEngagementChart(doc *storage.Document) ChartData {
	tweet := func(f func(*types.Tweet) float64) func(types.Record) float64 {
		return func(r types.Record) float64 { return f(r.(*types.Tweet)) }
	}
	return engagementChart(doc, []metric{
		{"Average Likes", tweet(func(t *types.Tweet) float64 { return float64(t.LikeCount) }), mean},
		{"Average Retweets", tweet(func(t *types.Tweet) float64 { return float64(t.RetweetCount) }), mean},
		{"Total Tweets", nil, count},
	})
}

// UpworkBudgetChart shows the average budget range and job count per keyword.
func UpworkBudgetChart(doc *storage.Document) ChartData {
	job := func(f func(*types.Job) float64) func(types.Record) float64 {
		return func(r types.Record) float64 { return f(r.(*types.Job)) }
	}
	return engagementChart(doc, []metric{
		{"Average Min Budget", job(func(j *types.Job) float64 { return j.Budget.Min }), mean},
		{"Average Max Budget", job(func(j *types.Job) float64 { return j.Budget.Max }), mean},
		{"Total Jobs", nil, count},
	})
}

// Activity holds the top records of each source.
type Activity struct {
	Reddit  []*types.Post  `json:"reddit"`
	YouTube []*types.Video `json:"youtube"`
	Twitter []*types.Tweet `json:"twitter"`
	Upwork  []*types.Job   `json:"upwork"`
}

// RecentActivity returns the top n posts by score, videos by views, tweets
// by likes and jobs by budget.
func RecentActivity(docs map[types.Source]*storage.Document, n int) Activity {
	return Activity{
		Reddit: topN(docOf(docs, types.SourceReddit).Posts, n, func(p *types.Post) float64 { return float64(p.Score) }),
		YouTube: topN(docOf(docs, types.SourceYouTube).Videos, n, func(v *types.Video) float64 {
			return float64(v.ViewCount)
		}),
		Twitter: topN(docOf(docs, types.SourceTwitter).Tweets, n, func(t *types.Tweet) float64 { return float64(t.LikeCount) }),
		Upwork:  topN(docOf(docs, types.SourceUpwork).Jobs, n, func(j *types.Job) float64 { return j.Budget.Max }),
	}
}

func topN[T any](items []T, n int, key func(T) float64) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []T{}
	}
	return out
}
