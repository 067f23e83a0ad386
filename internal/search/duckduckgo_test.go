package search

import (
	"context"
	"testing"
)

func TestParseHTMLResults(t *testing.T) {
	t.Run("lite page structure", func(t *testing.T) {
		html := `
<table>
<tr><td><a rel="nofollow" class='result-link' href='https://go.dev'>The Go Programming Language</a></td></tr>
<tr><td class='result-snippet'>Build simple, secure, scalable systems.</td></tr>
<tr><td><a rel="nofollow" class='result-link' href='https://go.dev/doc'>Documentation</a></td></tr>
<tr><td class='result-snippet'>Guides &amp; references.</td></tr>
</table>`

		results := parseHTMLResults(html, 10)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].URL != "https://go.dev" || results[0].Title != "The Go Programming Language" {
			t.Errorf("unexpected first result: %+v", results[0])
		}
		if results[0].Snippet != "Build simple, secure, scalable systems." {
			t.Errorf("unexpected snippet: %q", results[0].Snippet)
		}
		if results[1].Snippet != "Guides & references." {
			t.Errorf("entities not decoded: %q", results[1].Snippet)
		}
	})

	t.Run("maxResults caps output", func(t *testing.T) {
		html := `
<a class='result-link' href='https://example.com/1'>First Result Title</a>
<a class='result-link' href='https://example.com/2'>Second Result Title</a>
<a class='result-link' href='https://example.com/3'>Third Result Title</a>`

		results := parseHTMLResults(html, 2)
		if len(results) != 2 {
			t.Errorf("expected 2 results, got %d", len(results))
		}
	})

	t.Run("fallback parser skips internal links and dedupes", func(t *testing.T) {
		html := `
<a href='/settings'>Settings</a>
<a href='https://duckduckgo.com/about'>About DuckDuckGo</a>
<a href='javascript:void(0)'>Menu item</a>
<a href='https://example.com/page'>An External Result</a>
<a href='https://example.com/page'>An External Result</a>`

		results := parseHTMLResults(html, 10)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
		}
		if results[0].URL != "https://example.com/page" {
			t.Errorf("unexpected result: %+v", results[0])
		}
	})

	t.Run("no matches yields empty", func(t *testing.T) {
		if results := parseHTMLResults("<html><body>nothing here</body></html>", 5); len(results) != 0 {
			t.Errorf("expected no results, got %+v", results)
		}
	})
}

func TestCleanHTML(t *testing.T) {
	cases := map[string]string{
		"<b>Bold</b> text":        "Bold text",
		"a &amp; b":               "a & b",
		"&lt;tag&gt;":             "<tag>",
		"  spaced&nbsp;words  ":   "spaced words",
		"plain":                   "plain",
		"&quot;quoted&#39;s&quot;": `"quoted's"`,
	}
	for in, want := range cases {
		if got := cleanHTML(in); got != want {
			t.Errorf("cleanHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	d := NewDuckDuckGo()
	if _, err := d.Search(context.Background(), "  ", 5); err == nil {
		t.Error("expected an error for an empty query")
	}
}
