package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFetcherConfig() *config.FetcherConfig {
	cfg := config.DefaultConfig().Fetcher
	cfg.RetryDelay = time.Millisecond
	cfg.DefaultInterval = 0
	cfg.RateLimits = nil
	return &cfg
}

type countingObserver struct{ calls atomic.Int64 }

func (o *countingObserver) ObserveRequest(string, int, time.Duration) { o.calls.Add(1) }

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	obs := &countingObserver{}
	f, err := NewHTTPFetcher(testFetcherConfig(), testLogger(), WithObserver(obs))
	require.NoError(t, err)

	var out struct{ OK bool }
	require.NoError(t, f.GetJSON(context.Background(), srv.URL, nil, nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int64(3), hits.Load())
	assert.Equal(t, int64(3), obs.calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testFetcherConfig(), testLogger())
	require.NoError(t, err)

	_, err = f.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBlocked))

	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testFetcherConfig()
	cfg.MaxRetries = 1
	f, err := NewHTTPFetcher(cfg, testLogger())
	require.NoError(t, err)

	_, err = f.Get(context.Background(), srv.URL, nil, nil)
	assert.ErrorIs(t, err, types.ErrMaxRetries)
}

func TestFetchDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("<html><title>hi</title></html>"))
		_ = gz.Close()
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testFetcherConfig(), testLogger())
	require.NoError(t, err)

	resp, err := f.Get(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", PageTitle(string(resp.Body)))
}

func TestPostFormSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testFetcherConfig(), testLogger())
	require.NoError(t, err)

	resp, err := f.PostForm(context.Background(), srv.URL, url.Values{"grant_type": {"client_credentials"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter(""))
	assert.Equal(t, 7*time.Second, parseRetryAfter("7"))
	assert.Equal(t, 120*time.Second, parseRetryAfter("9999"))
}

func TestHostLimiterIntervals(t *testing.T) {
	l := NewHostLimiter([]config.HostRate{{Host: "Trends.Google.com", Interval: 15 * time.Second, Burst: 2}}, 500*time.Millisecond)
	assert.Equal(t, 15*time.Second, l.Interval("trends.google.com"))
	assert.Equal(t, 2, l.Burst("trends.google.com"))
	assert.Equal(t, 500*time.Millisecond, l.Interval("example.com"))
	assert.Equal(t, 1, l.Burst("example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Wait(ctx, "trends.google.com"))
	require.NoError(t, l.Wait(ctx, "trends.google.com"))
	// the burst is spent, the third call must wait 15s and hits the deadline
	assert.Error(t, l.Wait(ctx, "trends.google.com"))
}

func TestDefaultHostRates(t *testing.T) {
	cfg := config.DefaultConfig().Fetcher
	l := NewHostLimiter(cfg.RateLimits, cfg.DefaultInterval)
	assert.Equal(t, 15*time.Second, l.Interval("trends.google.com"))
	assert.Equal(t, 2, l.Burst("trends.google.com"))
	assert.Equal(t, 2*time.Second, l.Interval("www.reddit.com"))
	assert.Equal(t, 1, l.Burst("www.reddit.com"))
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"HTTPS://Example.COM:443/a/?b=2&a=1#frag", "https://example.com/a?a=1&b=2"},
		{"https://youtube.com/watch?v=x&utm_source=tw", "https://youtube.com/watch?v=x"},
		{"https://example.com/", "https://example.com/"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalizeURL(tt.in), tt.in)
	}
	assert.Equal(t, URLKey("https://a.com/x/"), URLKey("https://A.com/x"))
}

func TestDetectChallenge(t *testing.T) {
	assert.Equal(t, ChallengeCloudflare, DetectChallenge(`<title>Just a moment...</title><script src="/cdn-cgi/challenge-platform/x"></script>`))
	assert.Equal(t, ChallengeReCaptcha, DetectChallenge(`<div class="g-recaptcha" data-sitekey="k"></div>`))
	assert.Equal(t, ChallengeNone, DetectChallenge(`<section class="job-tile">ok</section>`))
}
