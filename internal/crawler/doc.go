// Package crawler provides the per-URL and per-document decisions of a
// focused web crawler.
//
// # Architecture
//
// The package does no network I/O. The host crawling framework fetches pages;
// this package tells it what the page says and which links are worth
// following.
//
// # Components
//
//   - Parser: HTML parser that extracts visible text, anchors and <base href>
//   - Canonicalize: resolves a raw href to an absolute URL without fragment
//   - Filter: the URL admission predicate (scheme, domain, path, extension,
//     length, repeated segments, query traps and URL similarity)
//   - Window: a bounded FIFO shared by the recent-URL and recent-page histories
//
// # Usage
//
//	parser, _ := crawler.NewParser(page.BaseURL())
//	result := parser.Parse(bytes.NewReader(page.Body))
//	filter := crawler.NewFilter(cfg)
//	for _, href := range result.Links {
//		if u, ok := crawler.Canonicalize(parser.Base(result), href); ok && filter.IsValid(u) {
//			enqueue(u)
//		}
//	}
//
// # Trap avoidance
//
// Crawler traps generate unbounded URL variations with little new content:
// calendars, paginated listings, session ids in query strings and recursive
// relative links. Most are caught by syntactic rules. The similarity rule
// catches the rest by rejecting URLs within a small edit distance of a
// recently admitted URL.
package crawler
