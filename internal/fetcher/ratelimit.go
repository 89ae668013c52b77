package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/TrendGoat/internal/config"
)

// HostLimiter spaces out requests per host. Hosts without an explicit
// interval share the default interval.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  map[string]config.HostRate
	fallback time.Duration
}

// NewHostLimiter builds a limiter from per-host rates. A later entry for the
// same host wins.
func NewHostLimiter(rates []config.HostRate, fallback time.Duration) *HostLimiter {
	perHost := make(map[string]config.HostRate, len(rates))
	for _, hr := range rates {
		perHost[strings.ToLower(strings.TrimSpace(hr.Host))] = hr
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  perHost,
		fallback: fallback,
	}
}

// Wait blocks until host may be contacted again.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.limiter(host).Wait(ctx)
}

// Interval returns the spacing applied to host.
func (h *HostLimiter) Interval(host string) time.Duration {
	if hr, ok := h.perHost[strings.ToLower(host)]; ok {
		return hr.Interval
	}
	return h.fallback
}

// Burst returns how many requests to host may go out back to back.
func (h *HostLimiter) Burst(host string) int {
	if hr, ok := h.perHost[strings.ToLower(host)]; ok && hr.Burst > 0 {
		return hr.Burst
	}
	return 1
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	host = strings.ToLower(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.limiters[host]; ok {
		return l
	}
	every := h.Interval(host)
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	l := rate.NewLimiter(limit, h.Burst(host))
	h.limiters[host] = l
	return l
}
