// Package dedup detects near-duplicate pages by comparing their token sets
// with a bounded window of recently accepted pages.
package dedup

import (
	"github.com/nao1215/crawlcore/internal/crawler"
	"github.com/nao1215/crawlcore/internal/tokenizer"
)

// Jaccard returns |a ∩ b| / |a ∪ b|.
// It is 0 when either set is empty.
func Jaccard(a, b tokenizer.TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for token := range small {
		if large.Contains(token) {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// page is one entry of the recent-page window.
type page struct {
	url    string
	tokens tokenizer.TokenSet
}

// Detector classifies pages as near-duplicates of recently accepted pages.
//
// Design decision: We compare against a bounded window instead of every page
// ever seen because:
//  1. Cost per page stays O(capacity) no matter how long the crawl runs
//  2. Templated and paginated traps are fetched in bursts, so recent history
//     catches them
//  3. Memory stays bounded on an unbounded stream
//
// Detector is not safe for concurrent use. The pipeline Processor serializes
// all access.
type Detector struct {
	threshold float64
	recent    *crawler.Window[page]
}

// NewDetector creates a Detector remembering capacity pages and flagging
// pages whose Jaccard similarity reaches threshold.
func NewDetector(capacity int, threshold float64) *Detector {
	return &Detector{
		threshold: threshold,
		recent:    crawler.NewWindow[page](capacity),
	}
}

// Check compares tokens against every page in the window.
// When a window member reaches the threshold it returns true with that
// member's URL and score, and the window is left unchanged. Otherwise the
// page is appended, evicting the oldest page when full, and the highest
// score seen is returned.
func (d *Detector) Check(url string, tokens tokenizer.TokenSet) (bool, string, float64) {
	var (
		best  float64
		match string
		isDup bool
	)

	d.recent.Each(func(p page) bool {
		score := Jaccard(tokens, p.tokens)
		if score >= d.threshold {
			best, match, isDup = score, p.url, true
			return false
		}
		if score > best {
			best, match = score, p.url
		}
		return true
	})

	if isDup {
		return true, match, best
	}

	d.recent.Push(page{url: url, tokens: tokens})
	return false, match, best
}

// Len returns the number of pages in the window.
func (d *Detector) Len() int {
	return d.recent.Len()
}

// URLs returns the URLs in the window, oldest first.
func (d *Detector) URLs() []string {
	out := make([]string, 0, d.recent.Len())
	d.recent.Each(func(p page) bool {
		out = append(out, p.url)
		return true
	})
	return out
}
