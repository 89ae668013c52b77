package types

import (
	"fmt"
	"strings"
)

// Source identifies an upstream data provider.
type Source string

const (
	SourceGoogle  Source = "google"
	SourceReddit  Source = "reddit"
	SourceYouTube Source = "youtube"
	SourceTwitter Source = "twitter"
	SourceUpwork  Source = "upwork"
)

// AllSources returns every known source in display order.
func AllSources() []Source {
	return []Source{SourceGoogle, SourceReddit, SourceYouTube, SourceTwitter, SourceUpwork}
}

// Label returns a human readable name.
func (s Source) Label() string {
	switch s {
	case SourceGoogle:
		return "Google Trends"
	case SourceReddit:
		return "Reddit"
	case SourceYouTube:
		return "YouTube"
	case SourceTwitter:
		return "Twitter/X"
	case SourceUpwork:
		return "Upwork"
	default:
		return string(s)
	}
}

// ParseSource resolves a source name. A few historical aliases are accepted.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "google", "google_trends", "google-trends", "trends":
		return SourceGoogle, nil
	case "reddit":
		return SourceReddit, nil
	case "youtube":
		return SourceYouTube, nil
	case "twitter", "x":
		return SourceTwitter, nil
	case "upwork":
		return SourceUpwork, nil
	default:
		return "", fmt.Errorf("unknown source %q", name)
	}
}

// ParseSources resolves a list of names, dropping duplicates. Elements may
// themselves be comma separated.
func ParseSources(names []string) ([]Source, error) {
	seen := make(map[Source]bool)
	var out []Source
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			src, err := ParseSource(name)
			if err != nil {
				return nil, err
			}
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
	}
	return out, nil
}
