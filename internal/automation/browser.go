package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Page wraps a Rod page with the interactions the browser collectors need.
type Page struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewPage wraps a Rod page with automation helpers.
func NewPage(page *rod.Page, logger *slog.Logger) *Page {
	return &Page{
		page:   page,
		logger: logger.With("component", "browser_automation"),
	}
}

// Click clicks an element matched by the CSS selector.
func (p *Page) Click(selector string) error {
	el, err := p.page.Timeout(10 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ClickIfPresent clicks the first of selectors present on the page right
// now. It reports whether anything was clicked.
func (p *Page) ClickIfPresent(selectors ...string) bool {
	for _, sel := range selectors {
		has, el, err := p.page.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			p.logger.Debug("click failed", "selector", sel, "error", err)
			continue
		}
		return true
	}
	return false
}

// WaitAny waits until one of selectors matches and returns it.
func (p *Page) WaitAny(ctx context.Context, timeout time.Duration, selectors ...string) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, sel := range selectors {
			if has, _, err := p.page.Has(sel); err == nil && has {
				return sel, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	return "", fmt.Errorf("none of %d selectors appeared within %s", len(selectors), timeout)
}

// ScrollToBottom scrolls to the bottom of the page.
func (p *Page) ScrollToBottom() error {
	_, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// InfiniteScroll scrolls until the page stops growing or maxScrolls is hit.
// It returns the number of scrolls performed.
func (p *Page) InfiniteScroll(ctx context.Context, maxScrolls int, waitBetween time.Duration) (int, error) {
	lastHeight := 0
	scrollCount := 0

	for scrollCount < maxScrolls {
		result, err := p.page.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return scrollCount, err
		}
		currentHeight := result.Value.Int()
		if currentHeight == lastHeight {
			break
		}
		lastHeight = currentHeight

		if err := p.ScrollToBottom(); err != nil {
			return scrollCount, err
		}
		scrollCount++

		select {
		case <-ctx.Done():
			return scrollCount, ctx.Err()
		case <-time.After(waitBetween):
		}
	}

	p.logger.Debug("infinite scroll finished", "scrolls", scrollCount, "height", lastHeight)
	return scrollCount, nil
}

// HTML returns the current document HTML.
func (p *Page) HTML() (string, error) {
	return p.page.HTML()
}
