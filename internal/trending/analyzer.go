// Package trending discovers trending keywords in the collected content of
// every source and scores them across sources.
package trending

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// maxContexts bounds the example snippets kept per keyword.
const maxContexts = 5

// Per-mention weights by where a keyword was found.
const (
	weightTitle       = 2
	weightBody        = 1
	weightTag         = 1
	weightComment     = 0.5
	weightHashtag     = 3
	weightTweetWord   = 1
	weightSkill       = 1
	commentsAnalyzed  = 5
	contextSnippetLen = 100
)

// Context is an example of where a keyword appeared.
type Context struct {
	Source  types.Source `json:"source"`
	Type    string       `json:"type"`
	Content string       `json:"content"`
	Score   int          `json:"score,omitempty"`
	Likes   int          `json:"likes,omitempty"`
	Views   int64        `json:"views,omitempty"`
	Value   int          `json:"value,omitempty"`
	URL     string       `json:"url,omitempty"`
}

// Sentiment is the averaged sentiment of a keyword's samples.
type Sentiment struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	SampleCount  int     `json:"sample_count"`
	Label        string  `json:"sentiment_label"`
}

// Keyword is one trending keyword.
type Keyword struct {
	Keyword       string                   `json:"keyword"`
	TrendingScore float64                  `json:"trending_score"`
	TotalMentions float64                  `json:"total_mentions"`
	Sources       map[types.Source]float64 `json:"sources"`
	Sentiment     Sentiment                `json:"sentiment"`
	Contexts      []Context                `json:"contexts"`
}

// AnalysisConfig echoes the settings a report was produced with.
type AnalysisConfig struct {
	MinKeywordLength int                `json:"min_keyword_length"`
	Threshold        float64            `json:"trending_threshold"`
	MaxKeywords      int                `json:"max_keywords"`
	WeightFactors    map[string]float64 `json:"weight_factors"`
}

// SummaryStats counts the report's keywords.
type SummaryStats struct {
	TotalTrendingKeywords int                  `json:"total_trending_keywords"`
	SourcesAnalyzed       int                  `json:"sources_analyzed"`
	KeywordsBySource      map[types.Source]int `json:"keywords_by_source"`
}

// Report is a complete trending analysis.
type Report struct {
	TrendingKeywords  []Keyword      `json:"trending_keywords"`
	AnalysisTimestamp time.Time      `json:"analysis_timestamp"`
	DataSourcesUsed   []types.Source `json:"data_sources_used"`
	AnalysisConfig    AnalysisConfig `json:"analysis_config"`
	SummaryStats      SummaryStats   `json:"summary_stats"`
}

// Top returns at most n keywords.
func (r *Report) Top(n int) []Keyword {
	if n <= 0 || n >= len(r.TrendingKeywords) {
		return r.TrendingKeywords
	}
	return r.TrendingKeywords[:n]
}

// Analyzer accumulates keyword mentions from documents.
type Analyzer struct {
	cfg        *config.TrendingConfig
	counts     map[types.Source]map[string]float64
	contexts   map[string][]Context
	sentiments map[string][]Polarity
	used       []types.Source
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer(cfg *config.TrendingConfig) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		counts:     make(map[types.Source]map[string]float64),
		contexts:   make(map[string][]Context),
		sentiments: make(map[string][]Polarity),
	}
}

// AddDocument processes every record of doc. It reports whether the
// document contributed anything.
func (a *Analyzer) AddDocument(doc *storage.Document) bool {
	if doc == nil {
		return false
	}
	before := len(a.counts[doc.Source])
	switch doc.Source {
	case types.SourceReddit:
		for _, p := range doc.Posts {
			a.addPost(p)
		}
	case types.SourceYouTube:
		for _, v := range doc.Videos {
			a.addVideo(v)
		}
	case types.SourceTwitter:
		for _, t := range doc.Tweets {
			a.addTweet(t)
		}
	case types.SourceGoogle:
		a.addRelated(doc.Related)
	case types.SourceUpwork:
		for _, j := range doc.Jobs {
			a.addJob(j)
		}
	}
	if len(a.counts[doc.Source]) == before {
		return false
	}
	a.used = append(a.used, doc.Source)
	return true
}

func (a *Analyzer) mention(src types.Source, kw string, weight float64) {
	m := a.counts[src]
	if m == nil {
		m = make(map[string]float64)
		a.counts[src] = m
	}
	m[kw] += weight
}

func (a *Analyzer) context(kw string, c Context) {
	if len(a.contexts[kw]) < maxContexts {
		a.contexts[kw] = append(a.contexts[kw], c)
	}
}

func (a *Analyzer) sentiment(kw string, p Polarity) {
	a.sentiments[kw] = append(a.sentiments[kw], p)
}

func (a *Analyzer) extract(text string) []string {
	return ExtractKeywords(text, a.cfg.MinKeywordLength)
}

func (a *Analyzer) addPost(p *types.Post) {
	for _, kw := range a.extract(p.Title) {
		a.mention(types.SourceReddit, kw, weightTitle)
		a.context(kw, Context{Source: types.SourceReddit, Type: "title", Content: snippet(p.Title), Score: p.Score, URL: p.Permalink})
	}
	if p.Selftext == "" {
		return
	}
	pol := Score(p.Selftext)
	for _, kw := range a.extract(p.Selftext) {
		a.mention(types.SourceReddit, kw, weightBody)
		a.sentiment(kw, pol)
		a.context(kw, Context{Source: types.SourceReddit, Type: "post", Content: snippet(p.Selftext), Score: p.Score})
	}
}

func (a *Analyzer) addVideo(v *types.Video) {
	for _, kw := range a.extract(v.Title) {
		a.mention(types.SourceYouTube, kw, weightTitle)
		a.context(kw, Context{Source: types.SourceYouTube, Type: "title", Content: snippet(v.Title), Views: v.ViewCount, URL: v.URL})
	}
	if v.Description != "" {
		pol := Score(v.Description)
		for _, kw := range a.extract(v.Description) {
			a.mention(types.SourceYouTube, kw, weightBody)
			a.sentiment(kw, pol)
		}
	}
	for _, tag := range v.Tags {
		if utf8.RuneCountInString(tag) < a.cfg.MinKeywordLength {
			continue
		}
		if clean := CleanTag(tag); clean != "" && !IsStopword(clean) {
			a.mention(types.SourceYouTube, clean, weightTag)
		}
	}
	for i, c := range v.Comments {
		if i >= commentsAnalyzed {
			break
		}
		if c.Text == "" {
			continue
		}
		pol := Score(c.Text)
		for _, kw := range a.extract(c.Text) {
			a.mention(types.SourceYouTube, kw, weightComment)
			a.sentiment(kw, pol)
		}
	}
}

func (a *Analyzer) addTweet(t *types.Tweet) {
	if t.Text == "" {
		return
	}
	tags := t.Hashtags
	if len(tags) == 0 {
		tags = parser.Hashtags(t.Text)
	}
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) < a.cfg.MinKeywordLength {
			continue
		}
		kw := strings.ToLower(tag)
		a.mention(types.SourceTwitter, kw, weightHashtag)
		a.context(kw, Context{Source: types.SourceTwitter, Type: "hashtag", Content: snippet(t.Text), Likes: t.LikeCount, URL: t.URL})
	}

	pol := Score(t.Text)
	for _, kw := range a.extract(t.Text) {
		a.mention(types.SourceTwitter, kw, weightTweetWord)
		a.sentiment(kw, pol)
		a.context(kw, Context{Source: types.SourceTwitter, Type: "tweet", Content: snippet(t.Text), Likes: t.LikeCount, URL: t.URL})
	}
}

func (a *Analyzer) addRelated(related map[string]types.RelatedQueries) {
	// sorted so that context order does not depend on map iteration
	seeds := make([]string, 0, len(related))
	for kw := range related {
		seeds = append(seeds, kw)
	}
	sort.Strings(seeds)

	for _, seed := range seeds {
		rq := related[seed]
		for _, q := range append(append([]types.RelatedQuery(nil), rq.Top...), rq.Rising...) {
			if q.Query == "" {
				continue
			}
			weight := math.Max(1, float64(q.Value/10))
			for _, kw := range a.extract(q.Query) {
				a.mention(types.SourceGoogle, kw, weight)
				a.context(kw, Context{Source: types.SourceGoogle, Type: "related_query", Content: q.Query, Value: q.Value})
			}
		}
	}
}

func (a *Analyzer) addJob(j *types.Job) {
	for _, kw := range a.extract(j.Title) {
		a.mention(types.SourceUpwork, kw, weightTitle)
		a.context(kw, Context{Source: types.SourceUpwork, Type: "job_title", Content: snippet(j.Title), URL: j.URL})
	}
	for _, skill := range j.Skills {
		kw := strings.ToLower(strings.TrimSpace(skill))
		if utf8.RuneCountInString(kw) < a.cfg.MinKeywordLength || IsStopword(kw) {
			continue
		}
		a.mention(types.SourceUpwork, kw, weightSkill)
	}
}

// Report scores every discovered keyword and returns the top ones.
// Sources without a configured weight factor count at 1.0.
func (a *Analyzer) Report(now time.Time) *Report {
	all := make(map[string]struct{})
	for _, m := range a.counts {
		for kw := range m {
			all[kw] = struct{}{}
		}
	}

	var out []Keyword
	for kw := range all {
		if utf8.RuneCountInString(kw) < a.cfg.MinKeywordLength {
			continue
		}
		var score, mentions float64
		sources := make(map[types.Source]float64)
		for _, src := range types.AllSources() {
			n := a.counts[src][kw]
			if n <= 0 {
				continue
			}
			sources[src] = n
			mentions += n
			score += n * a.weight(src)
		}
		if mentions < a.cfg.Threshold {
			continue
		}
		out = append(out, Keyword{
			Keyword:       kw,
			TrendingScore: round2(score),
			TotalMentions: mentions,
			Sources:       sources,
			Sentiment:     average(a.sentiments[kw]),
			Contexts:      a.contexts[kw],
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TrendingScore != out[j].TrendingScore {
			return out[i].TrendingScore > out[j].TrendingScore
		}
		return out[i].Keyword < out[j].Keyword
	})
	if a.cfg.MaxKeywords > 0 && len(out) > a.cfg.MaxKeywords {
		out = out[:a.cfg.MaxKeywords]
	}

	bySource := make(map[types.Source]int, len(a.used))
	for _, src := range a.used {
		for _, kw := range out {
			if _, ok := kw.Sources[src]; ok {
				bySource[src]++
			}
		}
	}

	return &Report{
		TrendingKeywords:  out,
		AnalysisTimestamp: now.UTC(),
		DataSourcesUsed:   a.used,
		AnalysisConfig: AnalysisConfig{
			MinKeywordLength: a.cfg.MinKeywordLength,
			Threshold:        a.cfg.Threshold,
			MaxKeywords:      a.cfg.MaxKeywords,
			WeightFactors:    a.cfg.WeightFactors,
		},
		SummaryStats: SummaryStats{
			TotalTrendingKeywords: len(out),
			SourcesAnalyzed:       len(a.used),
			KeywordsBySource:      bySource,
		},
	}
}

func (a *Analyzer) weight(src types.Source) float64 {
	if w, ok := a.cfg.WeightFactors[string(src)]; ok {
		return w
	}
	return 1
}

// Analyze runs a full analysis over the given documents.
func Analyze(cfg *config.TrendingConfig, docs map[types.Source]*storage.Document, now time.Time) *Report {
	a := NewAnalyzer(cfg)
	for _, src := range types.AllSources() {
		a.AddDocument(docs[src])
	}
	return a.Report(now)
}

func average(samples []Polarity) Sentiment {
	if len(samples) == 0 {
		return Sentiment{Label: LabelNeutral}
	}
	var p, s float64
	for _, x := range samples {
		p += x.Polarity
		s += x.Subjectivity
	}
	n := float64(len(samples))
	return Sentiment{
		Polarity:     round2(p / n),
		Subjectivity: round2(s / n),
		SampleCount:  len(samples),
		Label:        Label(p / n),
	}
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) <= contextSnippetLen {
		return s
	}
	return string([]rune(s)[:contextSnippetLen])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
