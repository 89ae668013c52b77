package types

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is the result of a Request.
type Response struct {
	StatusCode    int
	Headers       http.Header
	Body          []byte
	Request       *Request
	FinalURL      string
	FetchDuration time.Duration

	doc *goquery.Document
}

// NewResponse creates a Response from an http.Response.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	final := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		final = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		FinalURL:      final,
		FetchDuration: duration,
	}
}

// Document returns a parsed goquery document, lazily initializing it.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &ParseError{URL: r.FinalURL, Err: err}
	}
	r.doc = doc
	return doc, nil
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return &ParseError{URL: r.FinalURL, Err: ErrEmptyResponse}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &ParseError{URL: r.FinalURL, Err: err}
	}
	return nil
}
