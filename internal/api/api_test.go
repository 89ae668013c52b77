package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/engine"
	"github.com/IshaanNene/TrendGoat/internal/keywords"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/scheduler"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

type fakeEngine struct {
	mu      sync.Mutex
	running bool
	runs    [][]types.Source
	last    *engine.RunReport
	err     error
	delay   time.Duration
}

func (f *fakeEngine) Run(ctx context.Context, srcs []types.Source) (*engine.RunReport, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, srcs)
	f.last = &engine.RunReport{ID: "run-1", Succeeded: 1}
	if f.err != nil {
		f.last.Succeeded, f.last.Failed = 0, 1
		return f.last, f.err
	}
	return f.last, nil
}

func (f *fakeEngine) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeEngine) LastReport() *engine.RunReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeEngine) calls() [][]types.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]types.Source(nil), f.runs...)
}

type testEnv struct {
	srv     *Server
	engine  *fakeEngine
	sched   *scheduler.Scheduler
	logs    *observability.LogBuffer
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = dir
	cfg.Keywords.Path = filepath.Join(dir, "user_keywords.json")
	cfg.Keywords.Defaults = []string{"golang", "rust"}
	cfg.Trending.ReportPath = filepath.Join(dir, "trending_analysis.json")
	cfg.Trending.Threshold = 1
	cfg.Scheduler.StatusPath = filepath.Join(dir, "scheduler_status.json")
	cfg.Dashboard.LogLines = 50
	for _, opt := range opts {
		opt(cfg)
	}

	logs := observability.NewLogBuffer(50)
	logger := slog.New(slog.NewTextHandler(logs, nil))

	store, err := storage.NewJSONStore(&cfg.Storage, logger)
	require.NoError(t, err)
	seed(t, store)

	eng := &fakeEngine{}
	sched, err := scheduler.New(&cfg.Scheduler, eng, logger)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	srv := NewServer(Options{
		Config:    cfg,
		Engine:    eng,
		Store:     store,
		Keywords:  keywords.New(&cfg.Keywords, logger),
		Trending:  trending.NewService(&cfg.Trending, store, logger),
		Scheduler: sched,
		Logs:      logs,
		Metrics:   metrics,
	}, logger)
	return &testEnv{srv: srv, engine: eng, sched: sched, logs: logs, metrics: metrics}
}

func seed(t *testing.T, store storage.Store) {
	t.Helper()
	now := time.Now().UTC()
	reddit := types.NewBatch(types.SourceReddit, []string{"golang", "rust"}, "public_json")
	reddit.Add(
		&types.Post{Meta: types.Meta{Keyword: "golang", CollectedAt: now}, ID: "p1", Title: "Kubernetes operators in golang", Score: 10, NumComments: 4},
		&types.Post{Meta: types.Meta{Keyword: "golang", CollectedAt: now}, ID: "p2", Title: "Kubernetes controllers explained", Score: 50, NumComments: 8},
		&types.Post{Meta: types.Meta{Keyword: "rust", CollectedAt: now}, ID: "p3", Title: "Rust async runtimes", Score: 5, NumComments: 1},
	)
	youtube := types.NewBatch(types.SourceYouTube, []string{"golang"}, "data_api_v3")
	youtube.Add(&types.Video{Meta: types.Meta{Keyword: "golang", CollectedAt: now}, ID: "v1", Title: "Kubernetes crash course", ViewCount: 1000, LikeCount: 80})

	for _, b := range []*types.Batch{reddit, youtube} {
		_, err := store.Save(context.Background(), b)
		require.NoError(t, err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "json", body["storage"])
	assert.Equal(t, false, body["collection_running"])
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[Stats](t, rec)
	assert.Equal(t, 2, st.TotalKeywords)
	assert.Equal(t, 3, st.RedditPosts)
	assert.Equal(t, 1, st.YouTubeVideos)
	assert.Equal(t, 0, st.TwitterTweets)
	assert.Equal(t, 2, st.DataSources)
	assert.Equal(t, 2, st.KeywordsAnalyzed)
	assert.NotNil(t, st.LastUpdated)
}

func TestSourceDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reddit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[storage.Document](t, rec)
	assert.Len(t, doc.Posts, 3)

	rec = env.do(t, http.MethodGet, "/api/twitter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[storage.Document](t, rec).Tweets)

	rec = env.do(t, http.MethodGet, "/api/myspace", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[map[string]storage.Document](t, rec)
	assert.Len(t, all, len(types.AllSources()))
}

func TestCollectAsync(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/collect", map[string]any{"sources": []string{"reddit", "x"}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "started", decode[map[string]any](t, rec)["status"])

	env.srv.Wait()
	calls := env.engine.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []types.Source{types.SourceReddit, types.SourceTwitter}, calls[0])

	rec = env.do(t, http.MethodGet, "/api/runs/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", decode[engine.RunReport](t, rec).ID)
}

func TestCollectRejections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/runs/last", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/collect", map[string]any{"sources": []string{"myspace"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.engine.running = true
	rec = env.do(t, http.MethodPost, "/api/collect", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, env.engine.calls())
}

func TestCollectWait(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/collect", map[string]any{"wait": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["success"])

	env.engine.err = errors.New("all 1 sources failed")
	rec = env.do(t, http.MethodPost, "/api/collect", map[string]any{"wait": true})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "all 1 sources failed", body["error"])
	assert.NotNil(t, body["report"])
}

func TestCollectWaitOutlivesRequestTimeout(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Dashboard.RequestTimeout = 20 * time.Millisecond
	})
	env.engine.delay = 100 * time.Millisecond

	rec := env.do(t, http.MethodPost, "/api/collect", map[string]any{"wait": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["success"])
	assert.Len(t, env.engine.calls(), 1)

	// other endpoints keep the request timeout
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCollectWaitBoundedByRunTimeout(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Scheduler.RunTimeout = 20 * time.Millisecond
	})
	env.engine.delay = time.Second

	rec := env.do(t, http.MethodPost, "/api/collect", map[string]any{"wait": true})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["error"], "deadline exceeded")
}

func TestKeywordEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/keywords", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[keywords.Info](t, rec)
	assert.Equal(t, []string{"golang", "rust"}, info.Keywords)

	rec = env.do(t, http.MethodPost, "/api/keywords/add", map[string]string{"keyword": "  python  "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"golang", "rust", "python"}, decode[map[string]any](t, rec)["keywords"])

	rec = env.do(t, http.MethodPost, "/api/keywords/add", map[string]string{"keyword": "Python"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["success"])

	rec = env.do(t, http.MethodPost, "/api/keywords/remove", map[string]string{"keyword": "java"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/keywords/validate", map[string]any{"keywords": []string{"a"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["valid"])

	rec = env.do(t, http.MethodPost, "/api/keywords", map[string]any{"keywords": []string{"zig", "odin"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"zig", "odin"}, decode[map[string]any](t, rec)["keywords"])

	rec = env.do(t, http.MethodPost, "/api/keywords/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"golang", "rust"}, decode[map[string]any](t, rec)["keywords"])

	rec = env.do(t, http.MethodPost, "/api/keywords/add", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendingEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/trending", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/trending/top", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/trending/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/trending/top?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var top struct {
		Keywords   []trending.Keyword `json:"trending_keywords"`
		TotalCount int                `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.Len(t, top.Keywords, 1)
	assert.Equal(t, "kubernetes", top.Keywords[0].Keyword)
	assert.Greater(t, top.TotalCount, 1)

	rec = env.do(t, http.MethodGet, "/api/trending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[trending.Report](t, rec).TrendingKeywords)
}

func TestKeywordBreakdown(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/keywords/breakdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]trending.KeywordBreakdown](t, rec)
	require.Len(t, rows, 2)
	assert.Equal(t, "golang", rows[0].Keyword)
	assert.Equal(t, 3, rows[0].Total)
}

func TestChartEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/charts/reddit-engagement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chart := decode[ChartData](t, rec)
	assert.Equal(t, []string{"golang", "rust"}, chart.Labels)
	require.Len(t, chart.Datasets, 3)
	assert.Equal(t, "Average Score", chart.Datasets[0].Label)
	assert.Equal(t, []float64{30, 5}, chart.Datasets[0].Data)
	assert.Equal(t, []float64{2, 1}, chart.Datasets[1].Data)
	assert.Equal(t, []float64{6, 1}, chart.Datasets[2].Data)

	rec = env.do(t, http.MethodGet, "/api/charts/keyword-frequency", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chart = decode[ChartData](t, rec)
	assert.Equal(t, []string{"golang", "rust"}, chart.Labels)
	require.Len(t, chart.Datasets, 2)
	assert.Equal(t, "Reddit", chart.Datasets[0].Label)
	assert.Equal(t, "YouTube", chart.Datasets[1].Label)
	assert.Equal(t, []float64{1, 0}, chart.Datasets[1].Data)

	for _, path := range []string{"google-trends", "twitter-engagement", "upwork-budgets"} {
		rec = env.do(t, http.MethodGet, "/api/charts/"+path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		chart = decode[ChartData](t, rec)
		assert.Empty(t, chart.Labels, path)
		assert.NotNil(t, chart.Datasets, path)
	}
}

func TestGoogleTrendsChart(t *testing.T) {
	doc := storage.NewDocument(types.SourceGoogle)
	doc.Interest = []*types.InterestPoint{
		{Meta: types.Meta{Keyword: "go"}, Date: "2024-01-08", Value: 70},
		{Meta: types.Meta{Keyword: "go"}, Date: "2024-01-01", Value: 60},
		{Meta: types.Meta{Keyword: "rust"}, Date: "2024-01-01", Value: 40},
	}
	chart := GoogleTrendsChart(doc)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, chart.Labels)
	require.Len(t, chart.Datasets, 2)
	assert.Equal(t, "go", chart.Datasets[0].Label)
	assert.Equal(t, []float64{60, 70}, chart.Datasets[0].Data)
	assert.Equal(t, []float64{40, 0}, chart.Datasets[1].Data)
}

func TestRecentActivity(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/recent-activity?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	act := decode[Activity](t, rec)
	require.Len(t, act.Reddit, 2)
	assert.Equal(t, "p2", act.Reddit[0].ID)
	assert.Equal(t, "p1", act.Reddit[1].ID)
	assert.Len(t, act.YouTube, 1)
	assert.Empty(t, act.Twitter)
}

func TestSchedulerEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/scheduler/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(60), decode[map[string]any](t, rec)["interval_minutes"])

	rec = env.do(t, http.MethodPost, "/api/scheduler/settings", map[string]any{"interval_minutes": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/scheduler/settings", map[string]any{
		"interval_minutes": 30,
		"sources":          []string{"youtube"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	st := env.sched.Status()
	assert.Equal(t, 30, st.IntervalMinutes)
	assert.Equal(t, []types.Source{types.SourceYouTube}, st.Sources)
	assert.False(t, st.IsRunning)

	rec = env.do(t, http.MethodPost, "/api/scheduler/trigger", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	env.sched.Wait()
	calls := env.engine.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []types.Source{types.SourceYouTube}, calls[0])
	assert.Equal(t, 1, env.sched.Status().SuccessCount)
}

func TestSchedulerUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.srv.opts.Scheduler = nil
	rec := env.do(t, http.MethodGet, "/api/scheduler/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogsAndSummary(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		_, _ = env.logs.Write([]byte("level=INFO msg=line\n"))
	}

	rec := env.do(t, http.MethodGet, "/api/logs?lines=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs struct {
		Lines []string `json:"lines"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Equal(t, 3, logs.Count)

	rec = env.do(t, http.MethodGet, "/api/storage/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[storage.Summary](t, rec)
	assert.Equal(t, "json", sum.Backend)
	assert.Equal(t, 4, sum.TotalItems)

	rec = env.do(t, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), len(types.AllSources()))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.metrics.ObserveRun(true, time.Second)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "collection_runs_total"))
}
