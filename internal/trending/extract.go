package trending

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	urlRe       = regexp.MustCompile(`(?i)\bhttps?://\S+`)
	clockRe     = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	punctRe     = regexp.MustCompile(`[^\pL\pN_\s]+`)
	numberRe    = regexp.MustCompile(`\b\d+[kmbt]?\b`)
	longTokenRe = regexp.MustCompile(`\b[a-z0-9_-]{20,}\b`)
	abbrevRe    = regexp.MustCompile(`\b(rt|dm|pm|am)\b`)
)

// ExtractKeywords returns the candidate keywords of text: single words of
// at least minLen letters that are not stopwords, followed by the two- and
// three-word phrases made only of such words.
func ExtractKeywords(text string, minLen int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = strings.ToLower(text)
	text = urlRe.ReplaceAllString(text, " ")
	text = clockRe.ReplaceAllString(text, " ")
	text = punctRe.ReplaceAllString(text, " ")
	text = numberRe.ReplaceAllString(text, " ")
	text = longTokenRe.ReplaceAllString(text, " ")
	text = abbrevRe.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	var out []string
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minLen && isContentWord(w) {
			out = append(out, w)
		}
	}

	for i := 0; i+1 < len(words); i++ {
		if !isContentWord(words[i]) || !isContentWord(words[i+1]) {
			continue
		}
		phrase := words[i] + " " + words[i+1]
		if utf8.RuneCountInString(phrase) >= minLen {
			out = append(out, phrase)
		}
	}
	for i := 0; i+2 < len(words); i++ {
		a, b, c := words[i], words[i+1], words[i+2]
		if !isContentWord(a) || !isContentWord(b) || !isContentWord(c) {
			continue
		}
		if utf8.RuneCountInString(a+b+c) >= minLen*2 {
			out = append(out, a+" "+b+" "+c)
		}
	}
	return out
}

// CleanTag normalizes a video tag: lowercased with punctuation removed.
func CleanTag(tag string) string {
	return strings.TrimSpace(punctRe.ReplaceAllString(strings.ToLower(tag), ""))
}

func isContentWord(w string) bool {
	return !IsStopword(w) && isAlpha(w)
}

func isAlpha(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// IsStopword reports whether w is too common to be a trend.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

var stopwords = toSet(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your", "yours",
	"yourself", "yourselves", "he", "him", "his", "himself", "she", "her", "hers",
	"herself", "it", "its", "itself", "they", "them", "their", "theirs", "themselves",
	"what", "which", "who", "whom", "this", "that", "these", "those", "am", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "having", "do", "does",
	"did", "doing", "a", "an", "the", "and", "but", "if", "or", "because", "as", "until",
	"while", "of", "at", "by", "for", "with", "through", "during", "before", "after",
	"above", "below", "up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how", "all",
	"any", "both", "each", "few", "more", "most", "other", "some", "such", "no", "nor",
	"not", "only", "own", "same", "so", "than", "too", "very", "s", "t", "can", "will",
	"just", "don", "should", "now", "to", "from", "like", "get", "one", "would", "could",
	"also", "see", "make", "way", "much", "many", "good", "well", "come", "know", "time",
	"people", "really", "think", "want", "work", "use", "need", "go", "year", "new",
	"even", "back", "take", "day", "still", "say", "life", "look", "first", "two",
	"right", "find", "help", "video", "channel", "subscribe", "comment", "share",
	"please", "thanks", "thank", "amazing", "awesome", "great", "love", "nice",
	"best", "cool", "wow", "yes", "yeah", "ok", "okay", "sure", "definitely",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
