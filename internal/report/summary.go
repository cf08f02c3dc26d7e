package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/crawlcore/internal/model"
)

// DefaultTopK is the number of words listed when Options.TopK is zero.
const DefaultTopK = 50

// Options controls what Summarize keeps.
type Options struct {
	// TopK is the number of most frequent non-stop words to list.
	TopK int

	// Limit caps the number of subdomains listed. Zero lists all.
	Limit int

	// MonitoredDomain keeps only subdomain entries under this domain.
	// Empty keeps every entry.
	MonitoredDomain string
}

// SubdomainCount is the number of unique pages discovered on one host.
type SubdomainCount struct {
	Subdomain string `json:"subdomain"`
	Count     int    `json:"count"`
}

// WordCount is a word and its frequency across all accepted pages.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Summary is the human-facing view of a checkpoint.
//
// Design decision: We derive a Summary instead of writing the Snapshot
// directly because the snapshot holds every unique URL and every word ever
// seen. Reports need counts, a sorted subdomain list and the top words.
type Summary struct {
	// CreatedAt is when the checkpoint was taken.
	CreatedAt time.Time `json:"created_at"`

	// PagesProcessed counts every page the core handled.
	PagesProcessed int64 `json:"pages_processed"`

	// UniquePages is the number of unique canonical URLs discovered.
	UniquePages int `json:"unique_pages"`

	// LongestPage is the accepted page with the most tokens.
	LongestPage model.LongestPage `json:"longest_page"`

	// MonitoredDomain is the filter applied to Subdomains.
	MonitoredDomain string `json:"monitored_domain,omitempty"`

	// SubdomainTotal is the number of matching subdomains before Limit.
	SubdomainTotal int `json:"subdomain_total"`

	// Subdomains are sorted by name.
	Subdomains []SubdomainCount `json:"subdomains"`

	// TopWords are sorted by descending count, then by word.
	TopWords []WordCount `json:"top_words"`
}

// Summarize builds a Summary from snap.
func Summarize(snap *model.Snapshot, opts Options) *Summary {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	domain := strings.ToLower(strings.TrimSpace(opts.MonitoredDomain))

	s := &Summary{
		CreatedAt:       snap.CreatedAt,
		PagesProcessed:  snap.PagesProcessed,
		UniquePages:     len(snap.UniquePages),
		LongestPage:     snap.LongestPage,
		MonitoredDomain: domain,
		Subdomains:      make([]SubdomainCount, 0),
	}

	for key, count := range snap.Subdomains {
		if domain != "" && !underDomain(key, domain) {
			continue
		}
		s.Subdomains = append(s.Subdomains, SubdomainCount{Subdomain: key, Count: count})
	}
	slices.SortFunc(s.Subdomains, func(a, b SubdomainCount) int {
		return cmp.Compare(a.Subdomain, b.Subdomain)
	})
	s.SubdomainTotal = len(s.Subdomains)
	if opts.Limit > 0 && len(s.Subdomains) > opts.Limit {
		s.Subdomains = s.Subdomains[:opts.Limit]
	}

	s.TopWords = TopWords(snap.WordFrequency, opts.TopK)
	return s
}

// TopWords returns the k most frequent words that are not stop words.
// Ties are broken alphabetically so the result is deterministic.
func TopWords(freq map[string]int, k int) []WordCount {
	words := make([]WordCount, 0, len(freq))
	for w, c := range freq {
		if IsStopWord(w) {
			continue
		}
		words = append(words, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(words, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	if k > 0 && len(words) > k {
		words = words[:k]
	}
	return words
}

// underDomain reports whether a subdomain key such as "http://vision.ics.uci.edu"
// names domain or a host below it.
func underDomain(key, domain string) bool {
	host := strings.ToLower(key)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
