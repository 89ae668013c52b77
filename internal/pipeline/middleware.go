package pipeline

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/TrendGoat/internal/fetcher"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// RequireID drops records without a merge key.
type RequireID struct{}

func (RequireID) Name() string { return "require_id" }

func (RequireID) Process(rec types.Record) (types.Record, error) {
	if strings.TrimSpace(rec.RecordID()) == "" {
		return nil, nil
	}
	return rec, nil
}

// Dedup drops records already seen in this pipeline, keyed by source and ID.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

func (m *Dedup) Name() string { return "dedup" }

func (m *Dedup) Process(rec types.Record) (types.Record, error) {
	key := string(rec.Source()) + "\x00" + rec.RecordID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// HTMLSanitize strips markup from text fields and decodes entities.
// URLs are left alone.
type HTMLSanitize struct{}

func (HTMLSanitize) Name() string { return "html_sanitize" }

func (HTMLSanitize) Process(rec types.Record) (types.Record, error) {
	rec.MapText(func(kind types.TextKind, s string) string {
		if kind == types.TextURL || s == "" {
			return s
		}
		return StripHTML(s)
	})
	return rec, nil
}

var blockTagRe = regexp.MustCompile(`(?i)<(/?(?:br|p|div|li)\b)`)

// StripHTML returns the text content of s.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	if !strings.Contains(s, "<") {
		return html.UnescapeString(s)
	}
	// block elements would otherwise glue adjacent words together
	s = blockTagRe.ReplaceAllString(s, " <$1")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return html.UnescapeString(s)
	}
	return doc.Text()
}

// Whitespace collapses whitespace runs in text fields.
type Whitespace struct{}

func (Whitespace) Name() string { return "whitespace" }

func (Whitespace) Process(rec types.Record) (types.Record, error) {
	rec.MapText(func(_ types.TextKind, s string) string {
		return strings.Join(strings.Fields(s), " ")
	})
	return rec, nil
}

// Truncate caps long-form text at Max runes.
type Truncate struct {
	Max int
}

func (m Truncate) Name() string { return "truncate" }

func (m Truncate) Process(rec types.Record) (types.Record, error) {
	if m.Max <= 0 {
		return rec, nil
	}
	rec.MapText(func(kind types.TextKind, s string) string {
		if kind != types.TextBody || utf8.RuneCountInString(s) <= m.Max {
			return s
		}
		return string([]rune(s)[:m.Max])
	})
	return rec, nil
}

// URLCanonical removes tracking parameters and fragments from record URLs.
type URLCanonical struct{}

func (URLCanonical) Name() string { return "url_canonical" }

func (URLCanonical) Process(rec types.Record) (types.Record, error) {
	rec.MapText(func(kind types.TextKind, s string) string {
		if kind != types.TextURL || s == "" {
			return s
		}
		return fetcher.CanonicalizeURL(s)
	})
	return rec, nil
}

// Stamp sets the collection time on records that do not carry one. Every
// record in a run shares the same timestamp.
type Stamp struct {
	now time.Time
}

func NewStamp() *Stamp {
	return &Stamp{now: time.Now().UTC()}
}

func (m *Stamp) Name() string { return "stamp" }

func (m *Stamp) Process(rec types.Record) (types.Record, error) {
	rec.StampCollected(m.now)
	return rec, nil
}
