package trending

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/storage"
)

// Service runs trending analysis over stored data and persists the report.
type Service struct {
	cfg    *config.TrendingConfig
	store  storage.Store
	logger *slog.Logger

	mu   sync.Mutex
	last *Report
}

// NewService creates a trending service.
func NewService(cfg *config.TrendingConfig, store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "trending"),
	}
}

// Run analyzes every stored source and writes the report.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	docs, err := storage.LoadAll(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	report := Analyze(s.cfg, docs, time.Now())
	if s.cfg.ReportPath != "" {
		if err := storage.WriteJSONAtomic(s.cfg.ReportPath, report); err != nil {
			return nil, fmt.Errorf("write trending report: %w", err)
		}
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.logger.Info("trending analysis complete",
		"keywords", len(report.TrendingKeywords),
		"sources", report.DataSourcesUsed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return report, nil
}

// Load returns the most recent report, reading it from disk if this
// process has not produced one. A missing report yields (nil, nil).
func (s *Service) Load() (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		return s.last, nil
	}
	if s.cfg.ReportPath == "" {
		return nil, nil
	}

	var r Report
	err := storage.ReadJSON(s.cfg.ReportPath, &r)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	}
	s.last = &r
	return s.last, nil
}

// Top returns the n highest scoring keywords of the latest report.
func (s *Service) Top(n int) ([]Keyword, error) {
	r, err := s.Load()
	if err != nil || r == nil {
		return nil, err
	}
	return r.Top(n), nil
}
