package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/IshaanNene/TrendGoat/internal/keywords"
	"github.com/IshaanNene/TrendGoat/internal/scheduler"
	"github.com/IshaanNene/TrendGoat/internal/sources"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// --- Stored data ---

// Stats is the headline summary shown on the overview page.
type Stats struct {
	TotalKeywords     int        `json:"total_keywords"`
	RedditPosts       int        `json:"reddit_posts"`
	GoogleTrendsCount int        `json:"google_trends_count"`
	YouTubeVideos     int        `json:"youtube_videos"`
	TwitterTweets     int        `json:"twitter_tweets"`
	UpworkJobs        int        `json:"upwork_jobs"`
	DataSources       int        `json:"data_sources"`
	KeywordsAnalyzed  int        `json:"keywords_analyzed"`
	LastUpdated       *time.Time `json:"last_updated"`
	CollectionRunning bool       `json:"collection_running"`
}

// ComputeStats summarizes the stored documents. GoogleTrendsCount is the
// number of keywords with interest data.
func ComputeStats(docs map[types.Source]*storage.Document, tracked []string) Stats {
	st := Stats{TotalKeywords: len(tracked)}
	analyzed := make(map[string]bool)
	for _, src := range types.AllSources() {
		doc := docOf(docs, src)
		if doc.Len() == 0 {
			continue
		}
		st.DataSources++
		if t := doc.Info.LastUpdated; !t.IsZero() && (st.LastUpdated == nil || t.After(*st.LastUpdated)) {
			st.LastUpdated = &t
		}
		for _, rec := range doc.Records() {
			analyzed[strings.ToLower(rec.SearchKeyword())] = true
		}
	}
	trendKeywords := make(map[string]bool)
	for _, p := range docOf(docs, types.SourceGoogle).Interest {
		trendKeywords[strings.ToLower(p.Keyword)] = true
	}
	st.GoogleTrendsCount = len(trendKeywords)
	st.RedditPosts = len(docOf(docs, types.SourceReddit).Posts)
	st.YouTubeVideos = len(docOf(docs, types.SourceYouTube).Videos)
	st.TwitterTweets = len(docOf(docs, types.SourceTwitter).Tweets)
	st.UpworkJobs = len(docOf(docs, types.SourceUpwork).Jobs)
	st.KeywordsAnalyzed = len(analyzed)
	return st
}

func (s *Server) loadAll(w http.ResponseWriter, r *http.Request) (map[types.Source]*storage.Document, bool) {
	docs, err := storage.LoadAll(r.Context(), s.opts.Store)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return docs, true
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadAll(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, docs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadAll(w, r)
	if !ok {
		return
	}
	tracked, err := s.opts.Keywords.List()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	st := ComputeStats(docs, tracked)
	st.CollectionRunning = s.opts.Engine.Running()
	s.jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	src, err := types.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	doc, err := s.opts.Store.Load(r.Context(), src)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, sources.Describe(&s.cfg.Sources))
}

func (s *Server) handleStorageSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.opts.Store.Summary(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sum)
}

func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadAll(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, RecentActivity(docs, queryInt(r, "limit", 5, 1, 50)))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := []string{}
	if s.opts.Logs != nil {
		limit := max(1, s.cfg.Dashboard.LogLines)
		if got := s.opts.Logs.Lines(queryInt(r, "lines", min(100, limit), 1, limit)); got != nil {
			lines = got
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"lines": lines, "count": len(lines)})
}

// --- Charts ---

func (s *Server) handleKeywordFrequency(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadAll(w, r)
	if !ok {
		return
	}
	tracked, err := s.opts.Keywords.List()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, KeywordFrequencyChart(docs, tracked))
}

func (s *Server) sourceChart(src types.Source, build func(*storage.Document) ChartData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.opts.Store.Load(r.Context(), src)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, build(doc))
	}
}

// --- Collection ---

type collectRequest struct {
	Sources []string `json:"sources"`
	Wait    bool     `json:"wait"`
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	srcs, err := types.ParseSources(req.Sources)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if s.opts.Engine.Running() {
		s.errorResponse(w, http.StatusConflict, types.ErrCollectionRunning)
		return
	}

	if req.Wait {
		// The run outlives a client that disconnects; server shutdown and the
		// scheduler run timeout still bound it.
		ctx := s.base
		if d := s.cfg.Scheduler.RunTimeout; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		report, err := s.opts.Engine.Run(ctx, srcs)
		if err != nil && report == nil {
			s.errorResponse(w, statusFor(err), err)
			return
		}
		resp := map[string]any{"success": err == nil, "report": report}
		status := http.StatusOK
		if err != nil {
			resp["error"] = err.Error()
			status = http.StatusBadGateway
		}
		s.jsonResponse(w, status, resp)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.opts.Engine.Run(s.base, srcs); err != nil {
			s.logger.Error("background collection failed", "error", err)
		}
	}()

	msg := "collection started for all enabled sources"
	if len(srcs) > 0 {
		msg = fmt.Sprintf("collection started for %d sources", len(srcs))
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"status":    "started",
		"message":   msg,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	report := s.opts.Engine.LastReport()
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, errors.New("no collection has run yet"))
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// --- Trending ---

var errNoAnalysis = errors.New("no trending analysis available, run an analysis first")

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Trending.Load()
	switch {
	case err != nil:
		s.errorResponse(w, http.StatusInternalServerError, err)
	case report == nil:
		s.errorResponse(w, http.StatusNotFound, errNoAnalysis)
	default:
		s.jsonResponse(w, http.StatusOK, report)
	}
}

func (s *Server) handleTrendingRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Trending.Run(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"keywords": len(report.TrendingKeywords),
		"report":   report,
	})
}

func (s *Server) handleTrendingTop(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Trending.Load()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, errNoAnalysis)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"trending_keywords":  report.Top(queryInt(r, "limit", 10, 1, 50)),
		"total_count":        len(report.TrendingKeywords),
		"analysis_timestamp": report.AnalysisTimestamp,
	})
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.loadAll(w, r)
	if !ok {
		return
	}
	tracked, err := s.opts.Keywords.List()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, trending.Breakdown(docs, tracked))
}

// --- Keywords ---

type keywordRequest struct {
	Keyword  string   `json:"keyword"`
	Keywords []string `json:"keywords"`
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	info, err := s.opts.Keywords.Info()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}

// keywordMutation decodes the request, applies fn and reports the new list.
func (s *Server) keywordMutation(w http.ResponseWriter, r *http.Request, message string, fn func(keywordRequest) ([]string, error)) {
	var req keywordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	list, err := fn(req)
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"keywords": list,
		"message":  message,
	})
}

func (s *Server) handleSetKeywords(w http.ResponseWriter, r *http.Request) {
	s.keywordMutation(w, r, "keywords updated", func(req keywordRequest) ([]string, error) {
		return s.opts.Keywords.Set(req.Keywords)
	})
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	s.keywordMutation(w, r, "keyword added", func(req keywordRequest) ([]string, error) {
		return s.opts.Keywords.Add(req.Keyword)
	})
}

func (s *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	s.keywordMutation(w, r, "keyword removed", func(req keywordRequest) ([]string, error) {
		return s.opts.Keywords.Remove(req.Keyword)
	})
}

func (s *Server) handleResetKeywords(w http.ResponseWriter, r *http.Request) {
	s.keywordMutation(w, r, "keywords reset to defaults", func(keywordRequest) ([]string, error) {
		return s.opts.Keywords.Reset()
	})
}

func (s *Server) handleValidateKeywords(w http.ResponseWriter, r *http.Request) {
	var req keywordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	cleaned := keywords.Clean(req.Keywords)
	resp := map[string]any{"valid": true, "keywords": cleaned}
	if err := keywords.Validate(cleaned); err != nil {
		resp["valid"] = false
		resp["error"] = err.Error()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// --- Scheduler ---

type schedulerSettings struct {
	Enabled         *bool    `json:"enabled"`
	Sources         []string `json:"sources"`
	IntervalMinutes int      `json:"interval_minutes"`
}

var errNoScheduler = errors.New("scheduler is not running in this process")

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Scheduler == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, errNoScheduler)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.opts.Scheduler.Status())
}

func (s *Server) handleSchedulerSettings(w http.ResponseWriter, r *http.Request) {
	if s.opts.Scheduler == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, errNoScheduler)
		return
	}
	var req schedulerSettings
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	srcs, err := types.ParseSources(req.Sources)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.IntervalMinutes < 0 {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("%w: interval must be positive", scheduler.ErrInvalidSettings))
		return
	}
	st, err := s.opts.Scheduler.UpdateSettings(scheduler.Settings{
		Interval: time.Duration(req.IntervalMinutes) * time.Minute,
		Sources:  srcs,
		Enabled:  req.Enabled,
	})
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "status": st})
}

func (s *Server) handleSchedulerTrigger(w http.ResponseWriter, r *http.Request) {
	if s.opts.Scheduler == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, errNoScheduler)
		return
	}
	if s.opts.Engine.Running() {
		s.errorResponse(w, http.StatusConflict, types.ErrCollectionRunning)
		return
	}
	if err := s.opts.Scheduler.TriggerNow(s.base); err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"success":   true,
		"message":   "collection triggered",
		"timestamp": time.Now().UTC(),
	})
}
