package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/engine"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]types.Source
	err     error
	release chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, srcs []types.Source) (*engine.RunReport, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, srcs)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.RunReport{ID: "run", Succeeded: len(srcs)}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig(t *testing.T) *config.SchedulerConfig {
	return &config.SchedulerConfig{
		StatusPath: filepath.Join(t.TempDir(), "scheduler_status.json"),
		Interval:   60 * time.Minute,
		Sources:    []string{"google", "reddit"},
		RunTimeout: time.Minute,
	}
}

func TestNewDefaults(t *testing.T) {
	s, err := New(testConfig(t), &fakeRunner{}, discard)
	require.NoError(t, err)

	st := s.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.IsRunning)
	assert.Equal(t, 60, st.IntervalMinutes)
	assert.Equal(t, []types.Source{types.SourceGoogle, types.SourceReddit}, st.Sources)
	assert.Nil(t, st.MinutesUntilNext)
}

func TestNewRejectsUnknownSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources = []string{"myspace"}
	_, err := New(cfg, &fakeRunner{}, discard)
	assert.Error(t, err)
}

func TestStartStopPersists(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, &fakeRunner{}, discard)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	st := s.Status()
	assert.True(t, st.Enabled)
	assert.True(t, st.IsRunning)
	require.NotNil(t, st.MinutesUntilNext)
	assert.InDelta(t, 60, *st.MinutesUntilNext, 0.2)

	// a new process resumes the enabled schedule
	again, err := New(cfg, &fakeRunner{}, discard)
	require.NoError(t, err)
	assert.True(t, again.Status().Enabled)
	require.NoError(t, again.AutoStart(context.Background()))
	assert.True(t, again.Status().IsRunning)
	require.NoError(t, again.Stop())

	require.NoError(t, s.Stop())
	st = s.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.IsRunning)
	assert.Nil(t, st.NextRun)
}

func TestShutdownKeepsEnabled(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, &fakeRunner{}, discard)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	s.Shutdown()
	assert.False(t, s.Status().IsRunning)

	again, err := New(cfg, &fakeRunner{}, discard)
	require.NoError(t, err)
	assert.True(t, again.Status().Enabled)
}

func TestTriggerNowCounts(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(testConfig(t), runner, discard)
	require.NoError(t, err)

	require.NoError(t, s.TriggerNow(context.Background()))
	s.Wait()
	runner.err = errors.New("all sources failed")
	require.NoError(t, s.TriggerNow(context.Background()))
	s.Wait()

	st := s.Status()
	assert.Equal(t, 2, st.CollectionCount)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 1, st.ErrorCount)
	assert.Equal(t, "all sources failed", st.LastError)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, []types.Source{types.SourceGoogle, types.SourceReddit}, runner.calls[0])
}

func TestTriggerNowWhileActive(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s, err := New(testConfig(t), runner, discard)
	require.NoError(t, err)

	require.NoError(t, s.TriggerNow(context.Background()))
	assert.ErrorIs(t, s.TriggerNow(context.Background()), types.ErrCollectionRunning)
	assert.True(t, s.Status().CollectionActive)

	close(runner.release)
	s.Wait()
	assert.Equal(t, 1, runner.count())
	assert.False(t, s.Status().CollectionActive)
}

func TestUpdateSettings(t *testing.T) {
	s, err := New(testConfig(t), &fakeRunner{}, discard)
	require.NoError(t, err)

	_, err = s.UpdateSettings(Settings{Interval: 30 * time.Second})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, err = s.UpdateSettings(Settings{Interval: 25 * time.Hour})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	enabled := true
	st, err := s.UpdateSettings(Settings{
		Interval: 15 * time.Minute,
		Sources:  []types.Source{types.SourceYouTube},
		Enabled:  &enabled,
	})
	require.NoError(t, err)
	assert.True(t, st.IsRunning)
	assert.Equal(t, 15, st.IntervalMinutes)
	assert.Equal(t, []types.Source{types.SourceYouTube}, st.Sources)

	// restart keeps it running with the new interval
	st, err = s.UpdateSettings(Settings{Interval: 5 * time.Minute})
	require.NoError(t, err)
	assert.True(t, st.IsRunning)
	require.NotNil(t, st.MinutesUntilNext)
	assert.InDelta(t, 5, *st.MinutesUntilNext, 0.2)

	enabled = false
	st, err = s.UpdateSettings(Settings{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, st.IsRunning)
	assert.False(t, st.Enabled)
}

func TestCorruptStatusFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.StatusPath, []byte("not json"), 0o644))
	s, err := New(cfg, &fakeRunner{}, discard)
	require.NoError(t, err)
	assert.Equal(t, 60, s.Status().IntervalMinutes)
}

func TestStatusFileIntervalClamped(t *testing.T) {
	tests := map[int]int{1: 5, 90: 90, 100000: 24 * 60}
	for stored, want := range tests {
		cfg := testConfig(t)
		raw := fmt.Sprintf(`{"enabled":false,"interval_minutes":%d,"sources":["reddit"]}`, stored)
		require.NoError(t, os.WriteFile(cfg.StatusPath, []byte(raw), 0o644))

		s, err := New(cfg, &fakeRunner{}, discard)
		require.NoError(t, err)
		assert.Equal(t, want, s.Status().IntervalMinutes, "stored %d", stored)
	}
}
