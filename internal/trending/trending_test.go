package trending

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() *config.TrendingConfig {
	return &config.TrendingConfig{
		MinKeywordLength: 3,
		MaxKeywords:      10,
		Threshold:        3,
		WeightFactors: map[string]float64{
			"google":  1.5,
			"reddit":  1.0,
			"twitter": 1.1,
		},
	}
}

func testDocs() map[types.Source]*storage.Document {
	reddit := storage.NewDocument(types.SourceReddit)
	reddit.Posts = []*types.Post{{ID: "p1", Title: "Kubernetes operator patterns", Score: 10}}

	twitter := storage.NewDocument(types.SourceTwitter)
	twitter.Tweets = []*types.Tweet{{ID: "t1", Text: "Loving #Kubernetes today", LikeCount: 4}}

	google := storage.NewDocument(types.SourceGoogle)
	google.Related = map[string]types.RelatedQueries{
		"kubernetes": {
			Top:    []types.RelatedQuery{{Query: "kubernetes tutorial", Value: 100}},
			Rising: []types.RelatedQuery{{Query: "kubernetes tutorial", Value: 20}},
		},
	}

	return map[types.Source]*storage.Document{
		types.SourceReddit:  reddit,
		types.SourceTwitter: twitter,
		types.SourceGoogle:  google,
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Golang generics are great! Visit https://go.dev at 10:30", 3)
	assert.Equal(t, []string{"golang", "generics", "visit", "golang generics"}, got)

	assert.Empty(t, ExtractKeywords("   ", 3))
	assert.Empty(t, ExtractKeywords("RT 10k 5m the and", 3))
}

func TestExtractKeywordsTrigrams(t *testing.T) {
	got := ExtractKeywords("quantum computing breakthrough", 3)
	assert.Contains(t, got, "quantum computing breakthrough")
	assert.Contains(t, got, "quantum computing")
	assert.Contains(t, got, "computing breakthrough")
}

func TestCleanTag(t *testing.T) {
	assert.Equal(t, "machinelearning", CleanTag("#Machine-Learning!"))
	assert.Equal(t, "", CleanTag("!!!"))
}

func TestScore(t *testing.T) {
	neg := Score("this is not good")
	assert.InDelta(t, -0.7, neg.Polarity, 1e-9)
	assert.Equal(t, 1.0, neg.Subjectivity)
	assert.Equal(t, LabelNegative, Label(neg.Polarity))

	pos := Score("An excellent product")
	assert.InDelta(t, 1.0, pos.Polarity, 1e-9)
	assert.Equal(t, LabelPositive, Label(pos.Polarity))

	assert.Equal(t, Polarity{}, Score("kubernetes cluster"))
	assert.Equal(t, LabelNeutral, Label(0.05))
}

func TestAnalyzeScoresAcrossSources(t *testing.T) {
	r := Analyze(testConfig(), testDocs(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.Len(t, r.TrendingKeywords, 3)
	top := r.TrendingKeywords[0]
	assert.Equal(t, "kubernetes", top.Keyword)
	assert.Equal(t, 24.4, top.TrendingScore)
	assert.Equal(t, 18.0, top.TotalMentions)
	assert.Equal(t, map[types.Source]float64{
		types.SourceReddit:  2,
		types.SourceTwitter: 4,
		types.SourceGoogle:  12,
	}, top.Sources)
	assert.Len(t, top.Contexts, maxContexts)
	assert.Equal(t, 1, top.Sentiment.SampleCount)
	assert.Equal(t, LabelNeutral, top.Sentiment.Label)

	// equal scores sort by keyword
	assert.Equal(t, "kubernetes tutorial", r.TrendingKeywords[1].Keyword)
	assert.Equal(t, "tutorial", r.TrendingKeywords[2].Keyword)
	assert.Equal(t, 18.0, r.TrendingKeywords[2].TrendingScore)

	assert.Equal(t, []types.Source{types.SourceGoogle, types.SourceReddit, types.SourceTwitter}, r.DataSourcesUsed)
	assert.Equal(t, 3, r.SummaryStats.TotalTrendingKeywords)
	assert.Equal(t, 3, r.SummaryStats.SourcesAnalyzed)
	assert.Equal(t, 3, r.SummaryStats.KeywordsBySource[types.SourceGoogle])
	assert.Equal(t, 1, r.SummaryStats.KeywordsBySource[types.SourceReddit])
}

func TestAnalyzeLimitsAndDefaultWeight(t *testing.T) {
	cfg := testConfig()
	cfg.MaxKeywords = 1
	r := Analyze(cfg, testDocs(), time.Now())
	require.Len(t, r.TrendingKeywords, 1)
	assert.Equal(t, "kubernetes", r.TrendingKeywords[0].Keyword)

	cfg = testConfig()
	delete(cfg.WeightFactors, "google")
	r = Analyze(cfg, testDocs(), time.Now())
	for _, kw := range r.TrendingKeywords {
		if kw.Keyword == "tutorial" {
			assert.Equal(t, 12.0, kw.TrendingScore)
		}
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	r := Analyze(testConfig(), map[types.Source]*storage.Document{}, time.Now())
	assert.Empty(t, r.TrendingKeywords)
	assert.Equal(t, 0, r.SummaryStats.SourcesAnalyzed)
}

func TestAnalyzerVideosAndJobs(t *testing.T) {
	a := NewAnalyzer(testConfig())
	yt := storage.NewDocument(types.SourceYouTube)
	yt.Videos = []*types.Video{{
		ID:       "v1",
		Title:    "Rust tutorial",
		Tags:     []string{"Rust", "go"},
		Comments: []types.Comment{{ID: "c1", Text: "rust is excellent"}},
	}}
	require.True(t, a.AddDocument(yt))

	up := storage.NewDocument(types.SourceUpwork)
	up.Jobs = []*types.Job{{ID: "j1", Title: "Rust developer", Skills: []string{"Rust", "WebAssembly"}}}
	require.True(t, a.AddDocument(up))

	assert.False(t, a.AddDocument(nil))
	assert.False(t, a.AddDocument(storage.NewDocument(types.SourceReddit)))

	// title 2 + tag 1 + comment 0.5
	assert.Equal(t, 3.5, a.counts[types.SourceYouTube]["rust"])
	// title 2 + skill 1
	assert.Equal(t, 3.0, a.counts[types.SourceUpwork]["rust"])
	assert.Equal(t, 1.0, a.counts[types.SourceUpwork]["webassembly"])
	_, short := a.counts[types.SourceYouTube]["go"]
	assert.False(t, short)
}

func TestServiceRunAndLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONStore(&config.StorageConfig{DataDir: dir, HistoryCap: 10}, discard)
	require.NoError(t, err)

	b := types.NewBatch(types.SourceReddit, []string{"rust"}, "public_json")
	b.Add(
		&types.Post{Meta: types.Meta{Keyword: "rust"}, ID: "a", Title: "Rust async runtime"},
		&types.Post{Meta: types.Meta{Keyword: "rust"}, ID: "b", Title: "Rust memory safety"},
	)
	_, err = store.Save(context.Background(), b)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ReportPath = filepath.Join(dir, "trending_analysis.json")
	svc := NewService(cfg, store, discard)

	r, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, r.TrendingKeywords)
	assert.Equal(t, "rust", r.TrendingKeywords[0].Keyword)

	fresh := NewService(cfg, store, discard)
	top, err := fresh.Top(1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "rust", top[0].Keyword)
	assert.Equal(t, 4.0, top[0].TrendingScore)
}

func TestServiceLoadMissingReport(t *testing.T) {
	cfg := testConfig()
	cfg.ReportPath = filepath.Join(t.TempDir(), "missing.json")
	r, err := NewService(cfg, nil, discard).Load()
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestBreakdown(t *testing.T) {
	reddit := storage.NewDocument(types.SourceReddit)
	reddit.Posts = []*types.Post{
		{Meta: types.Meta{Keyword: "Go"}, ID: "1", Score: 10, NumComments: 3, Subreddit: "golang"},
		{Meta: types.Meta{Keyword: "go"}, ID: "2", Score: 20, NumComments: 1, Subreddit: "golang"},
		{Meta: types.Meta{Keyword: "rust"}, ID: "3", Score: 99},
	}
	google := storage.NewDocument(types.SourceGoogle)
	google.Interest = []*types.InterestPoint{
		{Meta: types.Meta{Keyword: "go"}, Date: "2024-06-01", Value: 40},
		{Meta: types.Meta{Keyword: "go"}, Date: "2024-06-02", Value: 80},
	}
	google.Related = map[string]types.RelatedQueries{"go": {Top: []types.RelatedQuery{{Query: "go tutorial"}}}}

	out := Breakdown(map[types.Source]*storage.Document{
		types.SourceReddit: reddit,
		types.SourceGoogle: google,
	}, []string{"go", "python"})

	require.Len(t, out, 2)
	g := out[0]
	assert.Equal(t, 4, g.Total)
	assert.Equal(t, SourceBreakdown{Items: 2, AvgScore: 15, Comments: 4, Subreddits: []string{"golang"}}, g.Sources[types.SourceReddit])
	assert.Equal(t, SourceBreakdown{Items: 2, AvgInterest: 60, PeakInterest: 80, Related: 1}, g.Sources[types.SourceGoogle])

	assert.Equal(t, 0, out[1].Total)
	assert.Empty(t, out[1].Sources)
}
