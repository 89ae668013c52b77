// Package engine runs collection: every selected source is fetched,
// cleaned and merged into storage.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/pipeline"
	"github.com/IshaanNene/TrendGoat/internal/sources"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// KeywordSource supplies the tracked keywords and is told about finished runs.
type KeywordSource interface {
	List() ([]string, error)
	RecordCollection(at time.Time) error
}

// Analyzer refreshes trending analysis after a run.
type Analyzer interface {
	Run(ctx context.Context) (*trending.Report, error)
}

// SourceResult is the outcome of one source within a run.
type SourceResult struct {
	Source   types.Source `json:"source"`
	Method   string       `json:"method,omitempty"`
	Fetched  int          `json:"fetched"`
	Kept     int          `json:"kept"`
	Added    int          `json:"added"`
	Updated  int          `json:"updated"`
	Total    int          `json:"total"`
	Notes    []string     `json:"notes,omitempty"`
	Duration string       `json:"duration"`
	Error    string       `json:"error,omitempty"`
}

// OK reports whether the source succeeded.
func (r SourceResult) OK() bool { return r.Error == "" }

// RunReport describes one collection run.
type RunReport struct {
	ID         string         `json:"id"`
	Keywords   []string       `json:"keywords"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceResult `json:"sources"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
}

// Engine is the collection orchestrator.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	collectors *sources.Registry
	store      storage.Store
	keywords   KeywordSource
	analyzer   Analyzer
	metrics    *observability.Metrics

	state atomic.Int32
	mu    sync.RWMutex
	last  *RunReport
}

// New creates a new Engine.
func New(cfg *config.Config, collectors *sources.Registry, store storage.Store, keywords KeywordSource, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
		collectors: collectors,
		store:      store,
		keywords:   keywords,
	}
}

// SetAnalyzer enables trending refresh after successful runs.
func (e *Engine) SetAnalyzer(a Analyzer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.analyzer = a
}

// SetMetrics sets the metrics sink.
func (e *Engine) SetMetrics(m *observability.Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.GetState() == StateRunning
}

// LastReport returns the report of the most recent run, or nil.
func (e *Engine) LastReport() *RunReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Sources returns the sources the engine can collect from.
func (e *Engine) Sources() []types.Source {
	return e.collectors.Sources()
}

// Run collects from the requested sources, or every registered source when
// none are given. It fails with ErrCollectionRunning while another run is
// active, and with an aggregated error when no source succeeded.
func (e *Engine) Run(ctx context.Context, requested []types.Source) (*RunReport, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, types.ErrCollectionRunning
	}
	defer e.state.Store(int32(StateIdle))

	e.mu.RLock()
	metrics, analyzer := e.metrics, e.analyzer
	e.mu.RUnlock()
	if metrics != nil {
		metrics.RunInProgress.Set(1)
		defer metrics.RunInProgress.Set(0)
	}

	collectors, err := e.collectors.Select(requested)
	if err != nil {
		return nil, err
	}
	if len(collectors) == 0 {
		return nil, fmt.Errorf("%w: no sources enabled", types.ErrSourceDisabled)
	}

	kws, err := e.keywords.List()
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	if len(kws) == 0 {
		return nil, types.ErrNoKeywords
	}

	report := &RunReport{
		ID:        uuid.NewString(),
		Keywords:  kws,
		StartedAt: time.Now().UTC(),
		Sources:   make([]SourceResult, len(collectors)),
	}
	logger := e.logger.With("run_id", report.ID)
	logger.Info("collection starting", "sources", len(collectors), "keywords", kws, "concurrency", e.concurrency())

	var g errgroup.Group
	g.SetLimit(e.concurrency())
	errs := make([]error, len(collectors))
	for i, c := range collectors {
		g.Go(func() error {
			report.Sources[i], errs[i] = e.runSource(ctx, logger, c, kws, metrics)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now().UTC()
	for _, r := range report.Sources {
		if r.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	e.mu.Lock()
	e.last = report
	e.mu.Unlock()

	elapsed := report.FinishedAt.Sub(report.StartedAt)
	if metrics != nil {
		metrics.ObserveRun(report.Succeeded > 0, elapsed)
	}

	if report.Succeeded == 0 {
		logger.Error("collection failed", "failed", report.Failed, "elapsed", elapsed.Round(time.Millisecond))
		return report, fmt.Errorf("all %d sources failed: %w", report.Failed, errors.Join(errs...))
	}

	if err := e.keywords.RecordCollection(report.FinishedAt); err != nil {
		logger.Warn("could not record collection", "error", err)
	}
	if analyzer != nil && e.cfg.Engine.AnalyzeAfterRun {
		if _, err := analyzer.Run(ctx); err != nil {
			logger.Warn("trending refresh failed", "error", err)
		}
	}

	logger.Info("collection complete",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return report, nil
}

// runSource fetches, cleans and stores one source.
func (e *Engine) runSource(ctx context.Context, logger *slog.Logger, c sources.Collector, kws []string, metrics *observability.Metrics) (SourceResult, error) {
	src := c.Name()
	logger = logger.With("source", src)
	res := SourceResult{Source: src}
	start := time.Now()

	fail := func(err error) (SourceResult, error) {
		res.Duration = time.Since(start).Round(time.Millisecond).String()
		res.Error = err.Error()
		if metrics != nil {
			metrics.ObserveSource(string(src), res.Method, 0, 0, 0, 0, time.Since(start), err)
		}
		logger.Error("source failed", "error", err)
		return res, &types.SourceError{Source: src, Err: err}
	}

	if timeout := e.cfg.Engine.SourceTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	batch, err := c.Collect(ctx, kws)
	if err != nil {
		if batch == nil || batch.Len() == 0 {
			return fail(err)
		}
		logger.Warn("keeping partial batch", "records", batch.Len(), "error", err)
		batch.Note(err.Error())
	}
	if batch == nil {
		batch = types.NewBatch(src, kws, "")
	}
	res.Method = batch.Method
	res.Fetched = batch.Len()
	res.Notes = batch.Notes

	dropped := pipeline.Default(&e.cfg.Pipeline, e.logger).ProcessBatch(batch)
	res.Kept = batch.Len()

	merged, err := e.store.Save(ctx, batch)
	if err != nil {
		return fail(fmt.Errorf("save: %w", err))
	}
	res.Added = merged.Added
	res.Updated = merged.Updated
	res.Total = merged.Total
	res.Duration = time.Since(start).Round(time.Millisecond).String()

	if metrics != nil {
		metrics.ObserveSource(string(src), res.Method, res.Fetched, dropped, res.Added, res.Total, time.Since(start), nil)
	}
	logger.Info("source collected",
		"method", res.Method,
		"fetched", res.Fetched,
		"dropped", dropped,
		"added", res.Added,
		"total", res.Total,
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Engine) concurrency() int {
	return max(1, e.cfg.Engine.Concurrency)
}
