// Package upwork collects job postings from Upwork search results. Upwork
// renders its listings client side, so pages are loaded in a headless
// browser and the resulting DOM is parsed with selector chains.
package upwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Renderer loads a page in a browser and returns its final DOM.
// *fetcher.BrowserFetcher satisfies it.
type Renderer interface {
	Render(ctx context.Context, rawURL string, opts fetcher.RenderOptions) (*fetcher.Rendered, error)
}

// Selector chain keys. Each may be overridden from sources.upwork.selectors.
const (
	SelTile        = "tile"
	SelTitle       = "title"
	SelDescription = "description"
	SelBudget      = "budget"
	SelSkills      = "skills"
	SelPosted      = "posted"
	SelExperience  = "experience"
	SelProposals   = "proposals"
	SelLocation    = "location"
	SelVerified    = "verified"
)

// DefaultSelectors are tried in order until one matches.
var DefaultSelectors = map[string][]string{
	SelTile: {
		`article[data-test="job-tile"]`,
		`section[data-cy="job-tile"]`,
		`div[data-test="JobTile"]`,
		`section.up-card-section`,
		`.job-tile`,
	},
	SelTitle: {
		`[data-test="job-tile-title-link"]`,
		`h2.job-tile-title a`,
		`[data-test="job-title"] a`,
		`h2 a`,
		`h3 a`,
		`h4 a`,
		`.job-title a`,
	},
	SelDescription: {
		`[data-test="JobDescription"] p`,
		`[data-test="job-description"]`,
		`[data-test*="description"]`,
		`.job-description`,
	},
	SelBudget: {
		`[data-test="job-type-label"]`,
		`[data-test="budget"]`,
		`[data-test*="budget"]`,
		`[data-test="is-fixed-price"]`,
		`.budget`,
	},
	SelSkills: {
		`[data-test="token"] span`,
		`[data-test="token"]`,
		`.air3-token`,
		`.skill-token`,
	},
	SelPosted: {
		`[data-test="job-pubilshed-date"]`,
		`[data-test="posted-on"]`,
		`small[data-test*="posted"]`,
	},
	SelExperience: {
		`[data-test="experience-level"]`,
		`[data-test="contractor-tier"]`,
	},
	SelProposals: {
		`[data-test="proposals-tier"]`,
		`[data-test="proposals"]`,
	},
	SelLocation: {
		`[data-test="location"]`,
		`[data-test="client-country"]`,
	},
	SelVerified: {
		`[data-test="payment-verified"]`,
		`[data-test="payment-verification-status"]`,
	},
}

// Upwork shows a consent banner to fresh sessions.
var dismissSelectors = []string{
	"#onetrust-accept-btn-handler",
	`button[data-test="accept-cookies"]`,
}

// Collector scrapes Upwork job search results.
type Collector struct {
	cfg       *config.UpworkConfig
	browser   Renderer
	selectors map[string][]string
	logger    *slog.Logger
}

// New creates an Upwork collector. Configured selector chains are tried
// before the built-in ones.
func New(cfg *config.UpworkConfig, browser Renderer, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:       cfg,
		browser:   browser,
		selectors: MergeSelectors(cfg.Selectors),
		logger:    logger.With("component", "upwork_collector"),
	}
}

// Name implements the collector contract.
func (c *Collector) Name() types.Source { return types.SourceUpwork }

// Collect implements the collector contract.
func (c *Collector) Collect(ctx context.Context, keywords []string) (*types.Batch, error) {
	if len(keywords) == 0 {
		return nil, types.ErrNoKeywords
	}
	if c.browser == nil {
		return nil, fmt.Errorf("upwork: no browser configured")
	}
	batch := types.NewBatch(types.SourceUpwork, keywords, "browser")

	var failed int
	for _, kw := range keywords {
		jobs, skipped, err := c.collectKeyword(ctx, kw)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			failed++
			c.logger.Warn("upwork keyword failed", "keyword", kw, "error", err)
			batch.Note(fmt.Sprintf("%s: %v", kw, err))
			if errors.Is(err, types.ErrBlocked) {
				// the session is challenged; later keywords will hit the same wall
				break
			}
			continue
		}
		if skipped > 0 {
			c.logger.Info("skipped private jobs", "keyword", kw, "count", skipped)
		}
		for _, j := range jobs {
			batch.Add(j)
		}
	}
	if failed > 0 && batch.Len() == 0 {
		return batch, fmt.Errorf("upwork collection failed for %d keywords", failed)
	}

	c.logger.Info("upwork collection complete", "keywords", len(keywords), "jobs", batch.Len())
	return batch, nil
}

func (c *Collector) collectKeyword(ctx context.Context, kw string) ([]*types.Job, int, error) {
	searchURL := SearchURL(c.cfg.BaseURL, kw)
	page, err := c.browser.Render(ctx, searchURL, fetcher.RenderOptions{
		WaitSelectors:    c.selectors[SelTile],
		DismissSelectors: dismissSelectors,
		MaxScrolls:       c.cfg.MaxScrolls,
		ScrollWait:       c.cfg.ScrollWait,
	})
	if err != nil {
		return nil, 0, err
	}

	jobs, err := ParseJobs(page.HTML, c.cfg.BaseURL, kw, c.selectors)
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []*types.Job
		skipped int
	)
	for _, j := range jobs {
		if c.cfg.SkipPrivate && IsPrivate(j) {
			skipped++
			continue
		}
		out = append(out, j)
		if c.cfg.MaxJobs > 0 && len(out) >= c.cfg.MaxJobs {
			break
		}
	}
	c.logger.Debug("upwork page parsed", "keyword", kw, "tiles", len(jobs), "kept", len(out), "duration", page.Duration)
	return out, skipped, nil
}

// SearchURL builds the most-recent-first job search URL for a keyword.
func SearchURL(base, kw string) string {
	q := url.Values{}
	q.Set("q", kw)
	q.Set("sort", "recency")
	return strings.TrimRight(base, "/") + "/nx/search/jobs/?" + q.Encode()
}

// MergeSelectors prepends overrides to the default chains.
func MergeSelectors(overrides map[string][]string) map[string][]string {
	out := make(map[string][]string, len(DefaultSelectors))
	for key, chain := range DefaultSelectors {
		merged := append([]string{}, overrides[key]...)
		out[key] = append(merged, chain...)
	}
	for key, chain := range overrides {
		if _, ok := out[key]; !ok {
			out[key] = append([]string{}, chain...)
		}
	}
	return out
}

var jobUIDRe = regexp.MustCompile(`~0[0-9a-z]+`)

// ParseJobs extracts every job tile from a rendered search page.
func ParseJobs(html, base, kw string, selectors map[string][]string) ([]*types.Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &types.ParseError{URL: base, Err: err}
	}
	if selectors == nil {
		selectors = DefaultSelectors
	}

	tiles, _ := parser.FindAny(doc.Selection, selectors[SelTile]...)
	jobs := make([]*types.Job, 0, tiles.Length())
	tiles.Each(func(_ int, tile *goquery.Selection) {
		if j := parseTile(tile, base, kw, selectors); j != nil {
			jobs = append(jobs, j)
		}
	})
	return jobs, nil
}

func parseTile(tile *goquery.Selection, base, kw string, sel map[string][]string) *types.Job {
	title := parser.FirstText(tile, sel[SelTitle]...)
	href := parser.FirstAttr(tile, "href", sel[SelTitle]...)
	if title == "" && href == "" {
		return nil
	}
	link := parser.ResolveURL(base, href)

	j := &types.Job{
		Meta:            types.Meta{Keyword: kw},
		Title:           title,
		Description:     parser.FirstText(tile, sel[SelDescription]...),
		Budget:          ParseBudget(parser.FirstText(tile, sel[SelBudget]...)),
		Skills:          dedupe(parser.AllText(tile, sel[SelSkills]...)),
		Posted:          parser.FirstText(tile, sel[SelPosted]...),
		ExperienceLevel: parser.FirstText(tile, sel[SelExperience]...),
		Proposals:       parser.FirstText(tile, sel[SelProposals]...),
		ClientLocation:  parser.FirstText(tile, sel[SelLocation]...),
		URL:             link,
	}
	j.PaymentVerified = paymentVerified(tile, sel[SelVerified])
	j.ID = jobID(tile, link)
	return j
}

func jobID(tile *goquery.Selection, link string) string {
	if uid, ok := tile.Attr("data-ev-job-uid"); ok && uid != "" {
		return uid
	}
	if m := jobUIDRe.FindString(link); m != "" {
		return m
	}
	if link != "" {
		return fetcher.URLKey(link)
	}
	return ""
}

func paymentVerified(tile *goquery.Selection, chain []string) bool {
	found, _ := parser.FindAny(tile, chain...)
	if found.Length() == 0 {
		return false
	}
	txt := strings.ToLower(parser.Clean(found.First().Text()))
	return !strings.Contains(txt, "unverified") && !strings.Contains(txt, "not verified")
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

var amountRe = regexp.MustCompile(`\$?(\d+(?:,\d{3})*(?:\.\d+)?)`)

var (
	hourlyWords = []string{"hour", "/hr", "hourly", "per hour"}
	fixedWords  = []string{"fixed", "project", "flat", "one-time", "fixed-price"}
)

// ParseBudget classifies budget text such as "Hourly: $15.00 - $30.00" or
// "Fixed-price: $500". Text with no type word is fixed when it carries one
// amount and hourly when it carries a range.
func ParseBudget(raw string) types.Budget {
	b := types.Budget{Raw: parser.Clean(raw), Type: types.BudgetUnknown, Currency: "USD"}
	if b.Raw == "" {
		b.Raw = "Budget not specified"
		return b
	}

	var amounts []float64
	for _, m := range amountRe.FindAllStringSubmatch(b.Raw, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil && v > 0 {
			amounts = append(amounts, v)
		}
	}

	lower := strings.ToLower(b.Raw)
	switch {
	case containsAny(lower, hourlyWords):
		b.Type = types.BudgetHourly
	case containsAny(lower, fixedWords):
		b.Type = types.BudgetFixed
	case len(amounts) == 1:
		b.Type = types.BudgetFixed
	case len(amounts) > 1:
		b.Type = types.BudgetHourly
	}

	if len(amounts) > 0 {
		b.Min, b.Max = amounts[0], amounts[0]
		if len(amounts) > 1 {
			b.Max = amounts[1]
		}
	}
	return b
}

var (
	privateTitleHints = []string{
		"private job", "confidential", "title not found", "private project",
		"undisclosed", "stealth", "nda required",
	}
	privateDescHints = []string{
		"this is a private job", "confidential project", "nda required",
		"private listing", "details will be shared", "more details in private",
		"confidential information", "stealth mode",
	}
	genericTitles = []string{
		"project", "work needed", "help needed", "assistance required",
		"developer needed", "freelancer needed",
	}
	minimalDescHints = []string{
		"details provided", "more info", "contact for details", "will discuss", "details in chat",
	}
)

// IsPrivate reports whether a posting looks private or inaccessible:
// confidential wording, a blank title, a short generic title, or a
// near-empty description that defers details to chat.
func IsPrivate(j *types.Job) bool {
	title := strings.ToLower(strings.TrimSpace(j.Title))
	desc := strings.ToLower(j.Description)

	if title == "" || containsAny(title, privateTitleHints) {
		return true
	}
	if containsAny(desc, privateDescHints) {
		return true
	}
	if len(title) < 20 && containsAny(title, genericTitles) {
		return true
	}
	if len(desc) < 50 && !strings.Contains(desc, "private") && containsAny(desc, minimalDescHints) {
		return true
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
