// Package sourcetest holds helpers shared by the collector tests.
package sourcetest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fetcher returns an HTTP fetcher with rate limiting off and no retries.
func Fetcher(t *testing.T) *fetcher.HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.RateLimits = nil
	cfg.DefaultInterval = 0
	cfg.MaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	f, err := fetcher.NewHTTPFetcher(&cfg, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// Server starts an httptest server with mux and closes it on cleanup.
func Server(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
