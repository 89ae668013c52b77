package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// HTTPFetcher implements Fetcher using net/http. It rotates user agents,
// spaces requests per host and retries transient failures.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	limiter    *HostLimiter
	observer   Observer
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// HTTPOption configures the HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithObserver reports every attempt to o.
func WithObserver(o Observer) HTTPOption {
	return func(f *HTTPFetcher) { f.observer = o }
}

// WithTransport replaces the HTTP transport. Used by tests.
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(f *HTTPFetcher) { f.client.Transport = rt }
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.FetcherConfig, logger *slog.Logger, opts ...HTTPOption) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.MaxIdleConns/2, 1),
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decompressed by hand so brotli is covered
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("max redirects (%d) reached", maxRedirects)
			}
			return nil
		},
	}

	f := &HTTPFetcher{
		client:     client,
		cfg:        cfg,
		limiter:    NewHostLimiter(cfg.RateLimits, cfg.DefaultInterval),
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.UserAgents,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch executes req, retrying retryable failures up to the configured limit.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	retries := f.cfg.MaxRetries
	if req.MaxRetries >= 0 {
		retries = req.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := RandomDelay(f.cfg.RetryDelay * time.Duration(1<<(attempt-1)))
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > wait {
				wait = fe.RetryAfter
			}
			f.logger.Debug("retrying request", "url", req.URLString(), "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := f.fetchOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.Retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %w", types.ErrMaxRetries, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := f.limiter.Wait(ctx, req.Domain()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URLString(), body)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		f.observe(req.Domain(), 0, duration)
		return nil, &types.FetchError{
			URL:       req.URLString(),
			Err:       err,
			Retryable: isRetryableError(err),
		}
	}
	defer httpResp.Body.Close()
	f.observe(req.Domain(), httpResp.StatusCode, duration)

	if httpResp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("rate limited (retry after %s)", retryAfter),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	}

	if httpResp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		err := fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
		if httpResp.StatusCode == http.StatusForbidden {
			err = fmt.Errorf("%w: %w", types.ErrBlocked, err)
		}
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        err,
			Retryable:  httpResp.StatusCode >= 500,
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}
	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"status", httpResp.StatusCode,
		"size", len(data),
		"duration", duration,
	)

	return types.NewResponse(req, httpResp, data, duration), nil
}

// Get fetches rawURL with query params and extra headers.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, query url.Values, headers http.Header) (*types.Response, error) {
	req, err := types.NewRequest(rawURL, query)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		req.Headers[k] = vs
	}
	return f.Fetch(ctx, req)
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, query url.Values, headers http.Header, v any) error {
	if headers == nil {
		headers = make(http.Header)
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}
	resp, err := f.Get(ctx, rawURL, query, headers)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// PostForm sends an urlencoded POST.
func (f *HTTPFetcher) PostForm(ctx context.Context, rawURL string, form url.Values, headers http.Header) (*types.Response, error) {
	req, err := types.NewRequest(rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Method = http.MethodPost
	req.Body = []byte(form.Encode())
	for k, vs := range headers {
		req.Headers[k] = vs
	}
	req.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.Fetch(ctx, req)
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) observe(host string, status int, d time.Duration) {
	if f.observer != nil {
		f.observer.ObserveRequest(host, status, d)
	}
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "TrendGoat/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) || errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses the Retry-After header value, capped at 2 minutes.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}

// RandomDelay returns a random delay around the base duration (±25%).
func RandomDelay(base time.Duration) time.Duration {
	jitter := float64(base) * 0.25
	return base + time.Duration(rand.Float64()*2*jitter-jitter)
}
