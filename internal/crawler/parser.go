package crawler

import (
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nonVisibleSelector matches subtrees whose text never renders as prose.
const nonVisibleSelector = "script, style, noscript, template"

// Outcome is the result class of parsing a document.
//
// Design decision: Parse reports malformed input as a value instead of an
// error because a broken page is an expected event in a crawl. The pipeline
// turns OutcomeMalformed into a rejection without any error plumbing.
type Outcome int

const (
	// OutcomeOK indicates the document was parsed into a tree.
	OutcomeOK Outcome = iota

	// OutcomeMalformed indicates the content could not be parsed.
	OutcomeMalformed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Parser extracts visible text and hyperlink targets from HTML content.
//
// Design decision: We parse with golang.org/x/net/html and select elements
// with goquery on top of the same tree because:
//  1. x/net/html handles malformed markup the way browsers do
//  2. goquery makes "remove every script/style" and "every a[href]" one-liners
//  3. The text walk needs raw node access to keep word boundaries between elements
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains everything the pipeline needs from one HTML page.
type ParseResult struct {
	// Outcome tells whether the document could be parsed.
	// All other fields are empty when Outcome is OutcomeMalformed.
	Outcome Outcome

	// Title is the page title from the <title> tag.
	Title string

	// Text is the visible text with script/style removed and
	// whitespace collapsed to single spaces.
	Text string

	// Links contains the raw href values of every anchor in document order.
	// Anchors without an href attribute are skipped.
	Links []string

	// BaseHref is the href of the first <base> element, if any.
	BaseHref string
}

// TextLength returns the number of characters of visible text.
func (r *ParseResult) TextLength() int {
	return utf8.RuneCountInString(r.Text)
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content. It never returns an error; unreadable or
// unparseable content yields a result with OutcomeMalformed.
func (p *Parser) Parse(content io.Reader) *ParseResult {
	root, err := html.Parse(content)
	if err != nil || root == nil {
		return &ParseResult{Outcome: OutcomeMalformed, Links: make([]string, 0)}
	}

	doc := goquery.NewDocumentFromNode(root)

	result := &ParseResult{
		Outcome: OutcomeOK,
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		Links:   make([]string, 0),
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		result.BaseHref = strings.TrimSpace(href)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			result.Links = append(result.Links, href)
		}
	})

	doc.Find(nonVisibleSelector).Remove()
	result.Text = visibleText(root)

	return result
}

// Base returns the URL relative links resolve against: the document's
// <base href> when present and valid, otherwise the parser's base URL.
func (p *Parser) Base(result *ParseResult) *url.URL {
	if result == nil || result.BaseHref == "" {
		return p.baseURL
	}
	ref, err := url.Parse(result.BaseHref)
	if err != nil {
		return p.baseURL
	}
	return p.baseURL.ResolveReference(ref)
}

// visibleText concatenates all text nodes under n, separating nodes with a
// space so adjacent block elements do not merge words, then collapses runs
// of whitespace.
func visibleText(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(sb.String()), " ")
}
