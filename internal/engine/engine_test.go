package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/sources"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCollector struct {
	src     types.Source
	records func(kw string) []types.Record
	err     error
	block   chan struct{}
}

func (f *fakeCollector) Name() types.Source { return f.src }

func (f *fakeCollector) Collect(ctx context.Context, keywords []string) (*types.Batch, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	b := types.NewBatch(f.src, keywords, "fake")
	for _, kw := range keywords {
		b.Add(f.records(kw)...)
	}
	return b, nil
}

type fakeKeywords struct {
	mu        sync.Mutex
	list      []string
	collected []time.Time
}

func (k *fakeKeywords) List() ([]string, error) { return k.list, nil }

func (k *fakeKeywords) RecordCollection(at time.Time) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.collected = append(k.collected, at)
	return nil
}

type fakeAnalyzer struct{ runs int }

func (a *fakeAnalyzer) Run(context.Context) (*trending.Report, error) {
	a.runs++
	return &trending.Report{}, nil
}

func posts(kw string) []types.Record {
	return []types.Record{
		&types.Post{Meta: types.Meta{Keyword: kw}, ID: kw + "-1", Title: "<b>About</b>   " + kw},
		&types.Post{Meta: types.Meta{Keyword: kw}, ID: kw + "-1", Title: "duplicate"},
		&types.Post{Meta: types.Meta{Keyword: kw}, Title: "no id"},
	}
}

func newTestEngine(t *testing.T, cs ...sources.Collector) (*Engine, *storage.JSONStore, *fakeKeywords) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Engine.Concurrency = 2
	cfg.Engine.SourceTimeout = 5 * time.Second
	cfg.Engine.AnalyzeAfterRun = true

	store, err := storage.NewJSONStore(&cfg.Storage, discard)
	require.NoError(t, err)

	reg := sources.NewRegistry(discard)
	for _, c := range cs {
		require.NoError(t, reg.Register(c))
	}
	kws := &fakeKeywords{list: []string{"golang", "rust"}}
	return New(cfg, reg, store, kws, discard), store, kws
}

func TestRunCollectsCleansAndStores(t *testing.T) {
	e, store, kws := newTestEngine(t, &fakeCollector{src: types.SourceReddit, records: posts})
	analyzer := &fakeAnalyzer{}
	e.SetAnalyzer(analyzer)
	e.SetMetrics(observability.NewMetrics())

	report, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)

	res := report.Sources[0]
	assert.True(t, res.OK())
	assert.Equal(t, "fake", res.Method)
	assert.Equal(t, 6, res.Fetched)
	assert.Equal(t, 2, res.Kept)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.NotEmpty(t, report.ID)

	doc, err := store.Load(context.Background(), types.SourceReddit)
	require.NoError(t, err)
	require.Len(t, doc.Posts, 2)
	assert.Equal(t, "About golang", doc.Posts[0].Title)

	assert.Len(t, kws.collected, 1)
	assert.Equal(t, 1, analyzer.runs)
	assert.Same(t, report, e.LastReport())
	assert.Equal(t, StateIdle, e.GetState())
}

func TestRunPartialFailure(t *testing.T) {
	e, _, _ := newTestEngine(t,
		&fakeCollector{src: types.SourceReddit, records: posts},
		&fakeCollector{src: types.SourceYouTube, err: types.ErrNoCredentials},
	)

	report, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, types.SourceYouTube, report.Sources[1].Source)
	assert.Contains(t, report.Sources[1].Error, "credentials")
}

func TestRunAllFailed(t *testing.T) {
	e, _, kws := newTestEngine(t, &fakeCollector{src: types.SourceYouTube, err: types.ErrNoCredentials})
	analyzer := &fakeAnalyzer{}
	e.SetAnalyzer(analyzer)

	report, err := e.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoCredentials)

	var se *types.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.SourceYouTube, se.Source)

	require.NotNil(t, report)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, kws.collected)
	assert.Zero(t, analyzer.runs)
}

func TestRunUnknownSource(t *testing.T) {
	e, _, _ := newTestEngine(t, &fakeCollector{src: types.SourceReddit, records: posts})
	_, err := e.Run(context.Background(), []types.Source{types.SourceUpwork})
	assert.ErrorIs(t, err, types.ErrSourceDisabled)

	e, _, _ = newTestEngine(t)
	_, err = e.Run(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrSourceDisabled)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	e, _, _ := newTestEngine(t, &fakeCollector{src: types.SourceReddit, records: posts, block: block})

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background(), nil)
		done <- err
	}()

	require.Eventually(t, e.Running, time.Second, 5*time.Millisecond)
	_, err := e.Run(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrCollectionRunning)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, e.Running())
}

func TestRunSourceTimeout(t *testing.T) {
	e, _, _ := newTestEngine(t, &fakeCollector{src: types.SourceReddit, records: posts, block: make(chan struct{})})
	e.cfg.Engine.SourceTimeout = 20 * time.Millisecond

	report, err := e.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, report.Failed)
}
