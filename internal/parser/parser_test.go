package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHTML = `<!DOCTYPE html>
<html>
<body>
    <section class="job-tile" data-ev-id="1">
        <h2 class="job-title"><a href="/jobs/~01abc">  Go   developer  </a></h2>
        <p class="desc">Build a scraper</p>
        <span class="stat">1.2K</span>
        <ul class="skills"><li>Go</li><li>MongoDB</li></ul>
    </section>
    <section class="job-tile" data-ev-id="2">
        <h3 class="title-fallback">Python help</h3>
    </section>
</body>
</html>`

func testDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(testHTML))
	require.NoError(t, err)
	return doc
}

func TestFirstTextFallsBack(t *testing.T) {
	doc := testDoc(t)
	tiles := doc.Find("section.job-tile")
	require.Equal(t, 2, tiles.Length())

	chain := []string{"h2.job-title a", "h3.title-fallback"}
	assert.Equal(t, "Go developer", FirstText(tiles.Eq(0), chain...))
	assert.Equal(t, "Python help", FirstText(tiles.Eq(1), chain...))
	assert.Empty(t, FirstText(tiles.Eq(1), ".missing"))
}

func TestFindAnyWithXPath(t *testing.T) {
	doc := testDoc(t)

	found, sel := FindAny(doc.Selection, ".nope", "//section[@data-ev-id]")
	assert.Equal(t, "//section[@data-ev-id]", sel)
	assert.Equal(t, 2, found.Length())

	tile := found.First()
	assert.Equal(t, "/jobs/~01abc", FirstAttr(tile, "href", "xpath:.//h2/a"))
	assert.Equal(t, []string{"Go", "MongoDB"}, AllText(tile, "ul.skills li"))
}

func TestXPathInChain(t *testing.T) {
	doc := testDoc(t)

	assert.Equal(t, "Build a scraper", FirstText(doc.Selection, "xpath://p[@class='desc']"))
	assert.Equal(t, "2", FirstAttr(doc.Selection, "data-ev-id", "xpath:(//section)[2]"))
	assert.Equal(t, []string{"Go", "MongoDB"}, AllText(doc.Selection, "xpath://[bad", "//ul/li"))
}

func TestParseCount(t *testing.T) {
	tests := map[string]int64{
		"1,234":    1234,
		"12.5K":    12500,
		"3M":       3_000_000,
		" 7 ":      7,
		"":         0,
		"n/a":      0,
		"1.1b":     1_100_000_000,
		"42 likes": 42,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCount(in), in)
	}
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://nitter.net/user/status/1", ResolveURL("https://nitter.net/search?q=x", "/user/status/1#m"))
	assert.Empty(t, ResolveURL("https://nitter.net", "javascript:void(0)"))
}

func TestHashtagsAndMentions(t *testing.T) {
	text := "Loving #GoLang and #golang with @gopher and #AI"
	assert.Equal(t, []string{"GoLang", "AI"}, Hashtags(text))
	assert.Equal(t, []string{"gopher"}, Mentions(text))
}
