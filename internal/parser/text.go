package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var countRe = regexp.MustCompile(`(?i)([\d.,]+)\s*([kmb])?`)

// ParseCount turns display counts like "1,234", "12.5K" or "3M" into
// integers. Anything unparseable is 0.
func ParseCount(s string) int64 {
	m := countRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	num := strings.ReplaceAll(m[1], ",", "")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	case "b":
		f *= 1_000_000_000
	}
	return int64(f + 0.5)
}

// ResolveURL resolves href against base. Anchors, javascript: and mailto:
// links resolve to "".
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := b.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	mentionRe = regexp.MustCompile(`@(\w{1,15})`)
)

// Hashtags returns the hashtags in text without the leading '#', deduplicated
// case-insensitively in order of appearance.
func Hashtags(text string) []string {
	return uniqueMatches(hashtagRe, text)
}

// Mentions returns the @handles in text without the leading '@'.
func Mentions(text string) []string {
	return uniqueMatches(mentionRe, text)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m[1])
	}
	return out
}
