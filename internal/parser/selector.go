package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// A selector chain is an ordered list of CSS selectors or XPath
// expressions; the first one that matches wins. XPath entries either start
// with "/" or "./" or carry an "xpath:" prefix. Chains let markup changes
// be absorbed in configuration instead of code.

// IsXPath reports whether sel should be evaluated as XPath.
func IsXPath(sel string) bool {
	return strings.HasPrefix(sel, "xpath:") || strings.HasPrefix(sel, "/") || strings.HasPrefix(sel, "./")
}

func xpathExpr(sel string) string {
	return strings.TrimPrefix(sel, "xpath:")
}

// FindAny returns the elements matched by the first selector in the chain
// that matches anything under root, and that selector.
func FindAny(root *goquery.Selection, chain ...string) (*goquery.Selection, string) {
	for _, sel := range chain {
		if sel == "" {
			continue
		}
		found := find(root, sel)
		if found.Length() > 0 {
			return found, sel
		}
	}
	return root.Slice(0, 0), ""
}

// FirstText returns the trimmed text of the first non-empty match.
func FirstText(root *goquery.Selection, chain ...string) string {
	for _, sel := range chain {
		if sel == "" {
			continue
		}
		if txt := Clean(find(root, sel).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}

// FirstAttr returns attr of the first match that carries it.
func FirstAttr(root *goquery.Selection, attr string, chain ...string) string {
	for _, sel := range chain {
		if sel == "" {
			continue
		}
		if v, ok := find(root, sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// AllText returns the trimmed text of every match of the first selector
// that yields anything.
func AllText(root *goquery.Selection, chain ...string) []string {
	found, _ := FindAny(root, chain...)
	var out []string
	found.Each(func(_ int, s *goquery.Selection) {
		if txt := Clean(s.Text()); txt != "" {
			out = append(out, txt)
		}
	})
	return out
}

// find evaluates one selector relative to root.
func find(root *goquery.Selection, sel string) *goquery.Selection {
	if !IsXPath(sel) {
		return root.Find(sel)
	}
	expr := xpathExpr(sel)
	var nodes []*html.Node
	for _, n := range root.Nodes {
		matched, err := htmlquery.QueryAll(n, expr)
		if err != nil {
			return root.Slice(0, 0)
		}
		nodes = append(nodes, matched...)
	}
	return root.FindNodes(nodes...)
}

// Clean collapses whitespace runs and trims.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
