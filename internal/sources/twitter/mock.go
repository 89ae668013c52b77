package twitter

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

var mockTemplates = []string{
	"Just discovered this amazing tool! #innovation #tech",
	"Breaking: New developments in the field are exciting! 🚀",
	"Tutorial: How to get started with %s - thread below 🧵",
	"Thoughts on the latest %s trends? What do you think?",
	"Amazing presentation about %s at today's conference!",
	"Quick tip: Best practices for %s implementation",
	"Industry update: %s market showing strong growth",
	"Beginner's guide to %s - perfect for newcomers!",
	"Expert analysis: The future of %s looks promising",
	"Community discussion: Share your %s success stories!",
}

// MockTweets generates n placeholder posts for kw. IDs are derived from the
// keyword itself, so later runs for the same keyword hit the stored copies
// instead of accumulating new ones.
func MockTweets(kw string, kwIndex, n int) []*types.Tweet {
	base := time.Now().UTC()
	slug := mockSlug(kw)

	tweets := make([]*types.Tweet, 0, n)
	for j := range n {
		tmpl := mockTemplates[j%len(mockTemplates)]
		text := tmpl
		if strings.Contains(tmpl, "%s") {
			text = fmt.Sprintf(tmpl, kw)
		}
		id := fmt.Sprintf("mock_%s_%d", slug, j)
		tweets = append(tweets, &types.Tweet{
			Meta:         types.Meta{Keyword: kw},
			ID:           id,
			Text:         text,
			Username:     fmt.Sprintf("user_%s_%d", slug, j),
			DisplayName:  fmt.Sprintf("Expert User %d", j+1),
			CreatedAt:    base.Add(-time.Duration(kwIndex*2)*time.Hour - time.Duration(j)*30*time.Minute),
			LikeCount:    max(1, (j*3)%50),
			RetweetCount: (j * 2) % 25,
			ReplyCount:   j % 15,
			Hashtags:     []string{slug, "tech"},
			URL:          "https://x.com/mock_user/status/" + id,
			Mock:         true,
		})
	}
	return tweets
}

// mockSlug keeps the lowercase letters and digits of kw.
func mockSlug(kw string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, kw)
}
