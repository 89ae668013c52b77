package fetcher

import "strings"

// ChallengeKind names an anti-bot interstitial.
type ChallengeKind string

const (
	ChallengeNone       ChallengeKind = ""
	ChallengeReCaptcha  ChallengeKind = "recaptcha"
	ChallengeHCaptcha   ChallengeKind = "hcaptcha"
	ChallengeTurnstile  ChallengeKind = "turnstile"
	ChallengeCloudflare ChallengeKind = "cloudflare"
	ChallengeLogin      ChallengeKind = "login_wall"
)

// DetectChallenge reports whether a rendered page is a bot check or login
// wall rather than real content.
func DetectChallenge(html string) ChallengeKind {
	lower := strings.ToLower(html)

	switch {
	case strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "recaptcha/api.js"):
		return ChallengeReCaptcha
	case strings.Contains(lower, "h-captcha") || strings.Contains(lower, "hcaptcha.com/1/api.js"):
		return ChallengeHCaptcha
	case strings.Contains(lower, "cf-turnstile"):
		return ChallengeTurnstile
	case strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "challenge-platform"),
		strings.Contains(lower, "just a moment...") && strings.Contains(lower, "cloudflare"):
		return ChallengeCloudflare
	case strings.Contains(lower, "please log in to continue") || strings.Contains(lower, "log in to upwork"):
		return ChallengeLogin
	}
	return ChallengeNone
}

// extractBetween extracts a substring between two delimiters.
func extractBetween(s, start, end string) string {
	idx := strings.Index(s, start)
	if idx < 0 {
		return ""
	}
	s = s[idx+len(start):]
	idx = strings.Index(s, end)
	if idx < 0 {
		return ""
	}
	return s[:idx]
}

// PageTitle returns the <title> text of an HTML document, if any.
func PageTitle(html string) string {
	lower := strings.ToLower(html)
	i := strings.Index(lower, "<title")
	if i < 0 {
		return ""
	}
	rest := html[i:]
	return strings.TrimSpace(extractBetween(rest, ">", "</"))
}
