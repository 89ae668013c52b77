// Package scheduler runs collection in the background on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/engine"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Interval bounds.
const (
	MinInterval = 5 * time.Minute
	MaxInterval = 24 * time.Hour
)

// ErrInvalidSettings reports rejected schedule settings.
var ErrInvalidSettings = errors.New("invalid scheduler settings")

// Runner performs one collection run.
type Runner interface {
	Run(ctx context.Context, sources []types.Source) (*engine.RunReport, error)
}

// state is persisted in the status file.
type state struct {
	Enabled         bool           `json:"enabled"`
	LastRun         *time.Time     `json:"last_run"`
	NextRun         *time.Time     `json:"next_run"`
	LastError       string         `json:"last_error,omitempty"`
	CollectionCount int            `json:"collection_count"`
	SuccessCount    int            `json:"success_count"`
	ErrorCount      int            `json:"error_count"`
	Sources         []types.Source `json:"sources"`
	IntervalMinutes int            `json:"interval_minutes"`
}

// Status is the scheduler state plus live information.
type Status struct {
	state
	IsRunning        bool     `json:"is_running"`
	CollectionActive bool     `json:"collection_active"`
	MinutesUntilNext *float64 `json:"minutes_until_next"`
}

// Settings changes the schedule. Zero values keep the current setting.
type Settings struct {
	Interval time.Duration
	Sources  []types.Source
	Enabled  *bool
}

// Scheduler triggers collection runs with a cron "@every" entry.
type Scheduler struct {
	path       string
	runTimeout time.Duration
	runner     Runner
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	st    state
	cron  *cron.Cron
	base  context.Context
	runWG sync.WaitGroup

	collecting atomic.Bool
}

// New creates a scheduler, restoring its state from the status file.
func New(cfg *config.SchedulerConfig, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		path:       cfg.StatusPath,
		runTimeout: cfg.RunTimeout,
		runner:     runner,
		logger:     logger.With("component", "scheduler"),
		now:        func() time.Time { return time.Now().UTC() },
		base:       context.Background(),
	}

	srcs, err := types.ParseSources(cfg.Sources)
	if err != nil {
		return nil, err
	}
	s.st = state{
		Sources:         srcs,
		IntervalMinutes: clampMinutes(int(cfg.Interval / time.Minute)),
	}

	var saved state
	err = storage.ReadJSON(s.path, &saved)
	switch {
	case err == nil:
		if saved.IntervalMinutes <= 0 {
			saved.IntervalMinutes = s.st.IntervalMinutes
		} else {
			saved.IntervalMinutes = clampMinutes(saved.IntervalMinutes)
		}
		if len(saved.Sources) == 0 {
			saved.Sources = s.st.Sources
		}
		s.st = saved
	case errors.Is(err, fs.ErrNotExist):
	case storage.IsCorrupt(err):
		s.logger.Warn("scheduler status is not valid JSON, using defaults", "path", s.path, "error", err)
	default:
		return nil, fmt.Errorf("read scheduler status: %w", err)
	}
	return s, nil
}

// AutoStart starts the schedule if it was enabled when the process last ran.
func (s *Scheduler) AutoStart(ctx context.Context) error {
	s.mu.Lock()
	enabled := s.st.Enabled
	s.mu.Unlock()
	if !enabled {
		return nil
	}
	s.logger.Info("resuming enabled schedule")
	return s.Start(ctx)
}

// Start schedules collection every interval. ctx bounds all scheduled runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = ctx
	return s.startLocked()
}

func (s *Scheduler) startLocked() error {
	if s.cron != nil {
		return nil
	}
	interval := s.interval()
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	))
	if _, err := c.AddFunc("@every "+interval.String(), s.scheduledRun); err != nil {
		return fmt.Errorf("schedule collection: %w", err)
	}
	c.Start()
	s.cron = c

	next := s.now().Add(interval)
	s.st.Enabled = true
	s.st.NextRun = &next
	s.logger.Info("scheduler started", "interval", interval, "sources", s.st.Sources, "next_run", next)
	return s.saveLocked()
}

// Stop cancels the schedule. A run in progress is allowed to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.st.Enabled = false
	s.st.NextRun = nil
	return s.saveLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Info("scheduler stopped")
}

// Shutdown stops the schedule for process exit. Unlike Stop, the enabled
// flag stays persisted so the next process resumes it. Shutdown waits for an
// active run.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
	s.Wait()
}

// Wait blocks until runs started by the scheduler have finished.
func (s *Scheduler) Wait() {
	s.runWG.Wait()
}

// Status returns the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		state:            s.st,
		IsRunning:        s.cron != nil,
		CollectionActive: s.collecting.Load(),
	}
	st.Sources = append([]types.Source(nil), s.st.Sources...)
	if st.IsRunning && s.st.NextRun != nil {
		mins := max(0, s.st.NextRun.Sub(s.now()).Minutes())
		mins = float64(int(mins*10)) / 10
		st.MinutesUntilNext = &mins
	}
	return st
}

// UpdateSettings changes interval, sources or enabled state, restarting the
// schedule when it is active.
func (s *Scheduler) UpdateSettings(set Settings) (Status, error) {
	if set.Interval != 0 && (set.Interval < MinInterval || set.Interval > MaxInterval) {
		return Status{}, fmt.Errorf("%w: interval must be between %s and %s", ErrInvalidSettings, MinInterval, MaxInterval)
	}

	s.mu.Lock()
	if set.Interval != 0 {
		s.st.IntervalMinutes = int(set.Interval / time.Minute)
	}
	if len(set.Sources) > 0 {
		s.st.Sources = append([]types.Source(nil), set.Sources...)
	}

	var err error
	running := s.cron != nil
	switch {
	case set.Enabled != nil && !*set.Enabled:
		s.stopLocked()
		s.st.Enabled = false
		s.st.NextRun = nil
		err = s.saveLocked()
	case running || (set.Enabled != nil && *set.Enabled):
		s.stopLocked()
		err = s.startLocked()
	default:
		err = s.saveLocked()
	}
	s.mu.Unlock()

	if err != nil {
		return Status{}, err
	}
	s.logger.Info("scheduler settings updated", "interval_minutes", s.Status().IntervalMinutes)
	return s.Status(), nil
}

// TriggerNow starts a run in the background. It returns
// ErrCollectionRunning when a scheduled run is already active.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	if !s.collecting.CompareAndSwap(false, true) {
		return types.ErrCollectionRunning
	}
	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		defer s.collecting.Store(false)
		s.run(context.WithoutCancel(ctx), "manual")
	}()
	return nil
}

func (s *Scheduler) scheduledRun() {
	if !s.collecting.CompareAndSwap(false, true) {
		s.logger.Info("skipping scheduled run, collection already active")
		return
	}
	s.runWG.Add(1)
	defer s.runWG.Done()
	defer s.collecting.Store(false)

	s.mu.Lock()
	base := s.base
	s.mu.Unlock()
	s.run(base, "scheduled")
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	s.mu.Lock()
	srcs := append([]types.Source(nil), s.st.Sources...)
	s.mu.Unlock()

	s.logger.Info("collection triggered", "trigger", trigger, "sources", srcs)
	report, err := s.runner.Run(ctx, srcs)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.st.LastRun = &now
	s.st.CollectionCount++
	if err != nil {
		s.st.ErrorCount++
		s.st.LastError = err.Error()
		s.logger.Error("scheduled collection failed", "trigger", trigger, "error", err)
	} else {
		s.st.SuccessCount++
		s.st.LastError = ""
		s.logger.Info("scheduled collection finished", "trigger", trigger, "run_id", report.ID,
			"succeeded", report.Succeeded, "failed", report.Failed)
	}
	if s.cron != nil {
		next := now.Add(s.interval())
		s.st.NextRun = &next
	}
	if err := s.saveLocked(); err != nil {
		s.logger.Warn("could not save scheduler status", "error", err)
	}
}

// clampMinutes bounds m to [MinInterval, MaxInterval] in minutes.
func clampMinutes(m int) int {
	return min(max(m, int(MinInterval/time.Minute)), int(MaxInterval/time.Minute))
}

func (s *Scheduler) interval() time.Duration {
	return time.Duration(max(1, s.st.IntervalMinutes)) * time.Minute
}

func (s *Scheduler) saveLocked() error {
	if s.path == "" {
		return nil
	}
	if err := storage.WriteJSONAtomic(s.path, s.st); err != nil {
		return fmt.Errorf("write scheduler status: %w", err)
	}
	return nil
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug(msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error(msg, append(kv, "error", err)...)
}
