// Package stats accumulates crawl statistics: the set of unique pages
// discovered, per-subdomain discovery counts, global word frequencies and
// the longest page.
//
// Every counter is monotonic. Nothing is ever removed, so a snapshot taken
// later always dominates a snapshot taken earlier.
package stats

import (
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/crawlcore/internal/model"
)

// Aggregator holds the live crawl statistics.
//
// Aggregator is not safe for concurrent use. The pipeline Processor
// serializes all access, including Snapshot, so a snapshot always reflects
// a single instant.
type Aggregator struct {
	monitoredDomain string

	uniquePages   map[string]struct{}
	subdomains    map[string]int
	wordFrequency map[string]int
	longestPage   model.LongestPage
}

// New creates an empty Aggregator. Subdomain counters are kept only for
// hosts equal to or under monitoredDomain.
func New(monitoredDomain string) *Aggregator {
	return &Aggregator{
		monitoredDomain: strings.ToLower(strings.TrimSpace(monitoredDomain)),
		uniquePages:     make(map[string]struct{}),
		subdomains:      make(map[string]int),
		wordFrequency:   make(map[string]int),
	}
}

// RecordPage adds the tokens of an accepted page to the word frequencies and
// updates the longest page when the page has strictly more tokens.
func (a *Aggregator) RecordPage(pageURL string, tokens []string) {
	for _, token := range tokens {
		a.wordFrequency[token]++
	}
	if len(tokens) > a.longestPage.TokenCount {
		a.longestPage = model.LongestPage{URL: pageURL, TokenCount: len(tokens)}
	}
}

// RecordLink adds a canonical link target to the unique page set.
// It returns false when the URL was already known. A newly discovered URL
// whose host is under the monitored domain increments that host's counter.
func (a *Aggregator) RecordLink(canonicalURL string) bool {
	if _, ok := a.uniquePages[canonicalURL]; ok {
		return false
	}
	a.uniquePages[canonicalURL] = struct{}{}

	if key, ok := a.SubdomainKey(canonicalURL); ok {
		a.subdomains[key]++
	}
	return true
}

// Seen reports whether canonicalURL is in the unique page set.
func (a *Aggregator) Seen(canonicalURL string) bool {
	_, ok := a.uniquePages[canonicalURL]
	return ok
}

// SubdomainKey returns the "http://host" counter key for rawURL and whether
// its host falls under the monitored domain. The scheme is always http so
// http and https discoveries share one counter.
func (a *Aggregator) SubdomainKey(rawURL string) (string, bool) {
	if a.monitoredDomain == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != a.monitoredDomain && !strings.HasSuffix(host, "."+a.monitoredDomain) {
		return "", false
	}
	return "http://" + host, true
}

// UniqueCount returns the number of unique pages discovered.
func (a *Aggregator) UniqueCount() int {
	return len(a.uniquePages)
}

// LongestPage returns the page with the most tokens so far.
func (a *Aggregator) LongestPage() model.LongestPage {
	return a.longestPage
}

// Snapshot returns a deep copy of the statistics. Unique pages are sorted.
// PagesProcessed is left for the caller, which owns the page counter.
func (a *Aggregator) Snapshot() *model.Snapshot {
	pages := slices.Collect(maps.Keys(a.uniquePages))
	slices.Sort(pages)

	return &model.Snapshot{
		Version:       model.SnapshotVersion,
		CreatedAt:     time.Now().UTC(),
		UniquePages:   pages,
		Subdomains:    maps.Clone(a.subdomains),
		WordFrequency: maps.Clone(a.wordFrequency),
		LongestPage:   a.longestPage,
	}
}

// Restore merges a previously persisted snapshot into the aggregator so a
// resumed crawl keeps growing the same counters. Counters are combined with
// max, which keeps them monotonic when the same snapshot is restored twice.
func (a *Aggregator) Restore(s *model.Snapshot) {
	if s == nil {
		return
	}
	for _, page := range s.UniquePages {
		a.uniquePages[page] = struct{}{}
	}
	for key, n := range s.Subdomains {
		a.subdomains[key] = max(a.subdomains[key], n)
	}
	for word, n := range s.WordFrequency {
		a.wordFrequency[word] = max(a.wordFrequency[word], n)
	}
	if s.LongestPage.TokenCount > a.longestPage.TokenCount {
		a.longestPage = s.LongestPage
	}
}
