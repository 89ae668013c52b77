package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request is an outbound HTTP call made by a collector.
type Request struct {
	URL     *url.URL
	Method  string
	Headers http.Header
	Body    []byte

	// Timeout overrides the client timeout for this request.
	Timeout time.Duration

	// MaxRetries overrides the client retry count when >= 0.
	MaxRetries int
}

// NewRequest creates a GET request for rawURL with optional query params.
func NewRequest(rawURL string, query url.Values) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w %q", ErrInvalidURL, rawURL)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return &Request{
		URL:        u,
		Method:     http.MethodGet,
		Headers:    make(http.Header),
		MaxRetries: -1,
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
