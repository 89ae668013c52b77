// Package api serves the dashboard's JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/engine"
	"github.com/IshaanNene/TrendGoat/internal/keywords"
	"github.com/IshaanNene/TrendGoat/internal/observability"
	"github.com/IshaanNene/TrendGoat/internal/scheduler"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

const maxBodyBytes = 1 << 20

// Collector is the part of the engine the API drives.
type Collector interface {
	Run(ctx context.Context, sources []types.Source) (*engine.RunReport, error)
	Running() bool
	LastReport() *engine.RunReport
}

// SchedulerControl is the part of the scheduler the API drives.
type SchedulerControl interface {
	Status() scheduler.Status
	UpdateSettings(set scheduler.Settings) (scheduler.Status, error)
	TriggerNow(ctx context.Context) error
}

// Options wires the server to the rest of the application. Scheduler, Logs
// and Metrics may be nil.
type Options struct {
	Config    *config.Config
	Engine    Collector
	Store     storage.Store
	Keywords  *keywords.Registry
	Trending  *trending.Service
	Scheduler SchedulerControl
	Logs      *observability.LogBuffer
	Metrics   *observability.Metrics

	// Pages mounts the HTML dashboard on the same router.
	Pages func(r chi.Router)
}

// Server is the dashboard HTTP server.
type Server struct {
	opts   Options
	cfg    *config.Config
	router chi.Router
	logger *slog.Logger

	base context.Context
	wg   sync.WaitGroup
}

// NewServer creates a new API server.
func NewServer(opts Options, logger *slog.Logger) *Server {
	s := &Server{
		opts:   opts,
		cfg:    opts.Config,
		logger: logger.With("component", "api_server"),
		base:   context.Background(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and waits for background collections started through the API.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.base = ctx
	addr := net.JoinHostPort(s.cfg.Dashboard.Host, strconv.Itoa(s.cfg.Dashboard.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("dashboard shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
	}
	s.Wait()
	return nil
}

// Wait blocks until collections started by the API have finished.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// POST /api/collect with wait=true blocks for a whole collection and is
	// bounded by the run timeout instead of the request timeout.
	r.With(middleware.NoCache).Post("/api/collect", s.handleCollect)

	r.Group(func(r chi.Router) {
		if d := s.cfg.Dashboard.RequestTimeout; d > 0 {
			r.Use(middleware.Timeout(d))
		}
		s.mountRoutes(r)
	})
	return r
}

func (s *Server) mountRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil && s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, s.opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoCache)

		r.Get("/data", s.handleData)
		r.Get("/stats", s.handleStats)
		r.Get("/sources", s.handleSources)
		r.Get("/storage/summary", s.handleStorageSummary)
		r.Get("/recent-activity", s.handleRecentActivity)
		r.Get("/logs", s.handleLogs)

		r.Get("/runs/last", s.handleLastRun)

		r.Route("/trending", func(r chi.Router) {
			r.Get("/", s.handleTrending)
			r.Post("/refresh", s.handleTrendingRefresh)
			r.Get("/top", s.handleTrendingTop)
		})

		r.Route("/charts", func(r chi.Router) {
			r.Get("/keyword-frequency", s.handleKeywordFrequency)
			r.Get("/google-trends", s.sourceChart(types.SourceGoogle, GoogleTrendsChart))
			r.Get("/reddit-engagement", s.sourceChart(types.SourceReddit, RedditEngagementChart))
			r.Get("/youtube-engagement", s.sourceChart(types.SourceYouTube, YouTubeEngagementChart))
			r.Get("/twitter-engagement", s.sourceChart(types.SourceTwitter, TwitterEngagementChart))
			r.Get("/upwork-budgets", s.sourceChart(types.SourceUpwork, UpworkBudgetChart))
		})

		r.Route("/keywords", func(r chi.Router) {
			r.Get("/", s.handleKeywords)
			r.Post("/", s.handleSetKeywords)
			r.Post("/add", s.handleAddKeyword)
			r.Post("/remove", s.handleRemoveKeyword)
			r.Post("/reset", s.handleResetKeywords)
			r.Post("/validate", s.handleValidateKeywords)
			r.Get("/breakdown", s.handleBreakdown)
		})

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", s.handleSchedulerStatus)
			r.Post("/settings", s.handleSchedulerSettings)
			r.Post("/trigger", s.handleSchedulerTrigger)
		})

		r.Get("/{source}", s.handleSource)
	})

	if s.opts.Pages != nil {
		s.opts.Pages(r)
	}
}

// requestLogger logs each request through slog. 5xx responses are warnings.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.jsonResponse(w, status, map[string]any{"success": false, "error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrCollectionRunning):
		return http.StatusConflict
	case errors.Is(err, types.ErrKeywordNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrSourceDisabled),
		errors.Is(err, types.ErrNoKeywords),
		errors.Is(err, types.ErrInvalidKeyword),
		errors.Is(err, types.ErrTooManyKeywords),
		errors.Is(err, types.ErrDuplicateKeyword),
		errors.Is(err, scheduler.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def, lo, hi int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return min(max(n, lo), hi)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"version":            config.Version,
		"storage":            s.opts.Store.Name(),
		"collection_running": s.opts.Engine.Running(),
	})
}
