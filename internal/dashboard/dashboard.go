// Package dashboard serves the server-rendered HTML pages. The pages load
// their data from the JSON API in the browser.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IshaanNene/TrendGoat/internal/config"
)

// Page describes one dashboard page.
type Page struct {
	Path  string
	Title string

	// Source, Chart and ChartType configure the per-source pages.
	Source    string
	Chart     string
	ChartType string

	body string
}

// Pages lists the dashboard pages in navigation order.
var Pages = []Page{
	{Path: "/", Title: "Overview", body: overviewHTML},
	{Path: "/google-trends", Title: "Google Trends", Source: "google", Chart: "google-trends", ChartType: "line", body: sourceHTML},
	{Path: "/reddit", Title: "Reddit", Source: "reddit", Chart: "reddit-engagement", ChartType: "bar", body: sourceHTML},
	{Path: "/youtube", Title: "YouTube", Source: "youtube", Chart: "youtube-engagement", ChartType: "bar", body: sourceHTML},
	{Path: "/twitter", Title: "Twitter/X", Source: "twitter", Chart: "twitter-engagement", ChartType: "bar", body: sourceHTML},
	{Path: "/upwork", Title: "Upwork", Source: "upwork", Chart: "upwork-budgets", ChartType: "bar", body: sourceHTML},
	{Path: "/trending-analysis", Title: "Trending", body: trendingHTML},
	{Path: "/settings", Title: "Settings", body: settingsHTML},
}

type navItem struct {
	Path   string
	Title  string
	Active bool
}

type pageData struct {
	Page    Page
	Nav     []navItem
	Version string
}

// Dashboard renders the HTML pages.
type Dashboard struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// New parses every page template.
func New(logger *slog.Logger) (*Dashboard, error) {
	base, err := template.New("layout").Parse(layoutHTML)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	d := &Dashboard{
		templates: make(map[string]*template.Template, len(Pages)),
		logger:    logger.With("component", "dashboard"),
	}
	for _, p := range Pages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.Parse(p.body); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", p.Path, err)
		}
		d.templates[p.Path] = t
	}
	return d, nil
}

// Routes registers the pages on r.
func (d *Dashboard) Routes(r chi.Router) {
	for _, p := range Pages {
		r.Get(p.Path, d.handlePage(p))
	}
}

func (d *Dashboard) handlePage(p Page) http.HandlerFunc {
	nav := make([]navItem, len(Pages))
	for i, other := range Pages {
		nav[i] = navItem{Path: other.Path, Title: other.Title, Active: other.Path == p.Path}
	}
	data := pageData{Page: p, Nav: nav, Version: config.Version}

	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := d.templates[p.Path].Execute(&buf, data); err != nil {
			d.logger.Error("render page", "path", p.Path, "error", err)
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}
