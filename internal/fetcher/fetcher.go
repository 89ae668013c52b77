// Package fetcher performs the outbound HTTP and headless-browser requests
// made by the collectors.
package fetcher

import (
	"context"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Fetcher retrieves a single request. HTTPFetcher and BrowserFetcher both
// implement it; BrowserFetcher returns the rendered DOM as the body.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
	Close() error
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*BrowserFetcher)(nil)
)

// Observer receives one call per completed HTTP attempt. status is 0 when
// the attempt failed before a response arrived.
type Observer interface {
	ObserveRequest(host string, status int, d time.Duration)
}
