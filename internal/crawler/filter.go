package crawler

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/crawlcore/internal/config"
	"github.com/pmezard/go-difflib/difflib"
)

// Rule identifies the admission rule that decided a URL's fate.
// Rules are evaluated in declaration order and the first failure wins.
type Rule int

const (
	// RuleAccepted means every rule passed.
	RuleAccepted Rule = iota

	// RuleMalformed rejects URLs that do not parse.
	RuleMalformed

	// RuleScheme rejects anything but http and https.
	RuleScheme

	// RuleDomain rejects hosts outside the allowed suffixes, and the special
	// host outside its required path prefix.
	RuleDomain

	// RuleBlockedPath rejects authentication and administration paths.
	RuleBlockedPath

	// RuleExtension rejects paths ending in a disallowed file extension.
	RuleExtension

	// RuleLength rejects URLs longer than the maximum length.
	RuleLength

	// RuleRepeatedSegments rejects deep paths that repeat a segment.
	RuleRepeatedSegments

	// RuleQueryTrap rejects queries containing a trap keyword.
	RuleQueryTrap

	// RuleQueryExtension rejects queries whose values name a disallowed file.
	RuleQueryExtension

	// RuleQueryParams rejects queries with too many parameters.
	RuleQueryParams

	// RuleSimilarURL rejects URLs nearly identical to a recently admitted one.
	RuleSimilarURL
)

var ruleNames = map[Rule]string{
	RuleAccepted:         "accepted",
	RuleMalformed:        "malformed",
	RuleScheme:           "scheme",
	RuleDomain:           "domain",
	RuleBlockedPath:      "blocked_path",
	RuleExtension:        "extension",
	RuleLength:           "length",
	RuleRepeatedSegments: "repeated_segments",
	RuleQueryTrap:        "query_trap",
	RuleQueryExtension:   "query_extension",
	RuleQueryParams:      "query_params",
	RuleSimilarURL:       "similar_url",
}

// String returns the rule name.
func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Accepted reports whether r is RuleAccepted.
func (r Rule) Accepted() bool {
	return r == RuleAccepted
}

// recentURL is a window entry with its characters split once, so the
// similarity rule does not re-split 400 URLs for every candidate.
type recentURL struct {
	url   string
	chars []string
}

// Filter decides whether a URL is worth crawling.
//
// Design decision: All rules except URL similarity are pure functions of the
// URL. The similarity rule reads a bounded window of recently admitted URLs,
// and IsValid is the only method that appends to it. Explain evaluates the
// same rules without touching the window so the CLI can diagnose a URL
// without changing crawl state.
//
// Filter is not safe for concurrent use. The pipeline Processor serializes
// all access.
type Filter struct {
	allowedDomains    []string
	specialHost       string
	specialPathPrefix string
	blockedKeywords   []string
	extensions        map[string]struct{}
	trapKeywords      []string
	maxURLLength      int
	maxPathSegments   int
	maxQueryParams    int
	threshold         float64
	similarity        bool

	recent *Window[recentURL]
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithoutSimilarity disables the recent-URL similarity rule.
// The filter becomes a pure predicate.
func WithoutSimilarity() FilterOption {
	return func(f *Filter) {
		f.similarity = false
	}
}

// WithRecentURLs seeds the similarity window, oldest first.
func WithRecentURLs(urls []string) FilterOption {
	return func(f *Filter) {
		for _, u := range urls {
			f.remember(u)
		}
	}
}

// NewFilter creates a Filter from the admission settings in cfg.
// A nil cfg uses config.NewConfig defaults.
func NewFilter(cfg *config.Config, opts ...FilterOption) *Filter {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	f := &Filter{
		allowedDomains:    lowerAll(cfg.AllowedDomains),
		specialHost:       strings.ToLower(cfg.SpecialHost),
		specialPathPrefix: cfg.SpecialPathPrefix,
		blockedKeywords:   lowerAll(cfg.BlockedPathKeywords),
		extensions:        make(map[string]struct{}, len(cfg.DisallowedExtensions)),
		trapKeywords:      lowerAll(cfg.QueryTrapKeywords),
		maxURLLength:      cfg.MaxURLLength,
		maxPathSegments:   cfg.MaxPathSegments,
		maxQueryParams:    cfg.MaxQueryParams,
		threshold:         cfg.URLSimilarityThreshold,
		similarity:        true,
		recent:            NewWindow[recentURL](cfg.RecentURLCapacity),
	}
	for _, ext := range cfg.DisallowedExtensions {
		f.extensions[strings.TrimPrefix(strings.ToLower(ext), ".")] = struct{}{}
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsValid reports whether rawURL should be crawled.
// An accepted URL is appended to the recent-URL window.
func (f *Filter) IsValid(rawURL string) bool {
	return f.Admit(rawURL).Accepted()
}

// Admit is IsValid that also returns the deciding rule.
func (f *Filter) Admit(rawURL string) Rule {
	rule := f.Explain(rawURL)
	if rule.Accepted() {
		f.remember(rawURL)
	}
	return rule
}

// Explain returns the first rule rawURL fails, or RuleAccepted.
// It never modifies the filter.
func (f *Filter) Explain(rawURL string) Rule {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RuleMalformed
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return RuleScheme
	}

	if !f.allowedHost(strings.ToLower(u.Hostname()), u.Path) {
		return RuleDomain
	}

	lowerPath := strings.ToLower(u.Path)
	if containsAny(lowerPath, f.blockedKeywords) {
		return RuleBlockedPath
	}
	if f.hasDisallowedExtension(lowerPath) {
		return RuleExtension
	}

	if utf8.RuneCountInString(rawURL) > f.maxURLLength {
		return RuleLength
	}

	if f.repeatsSegments(u.Path) {
		return RuleRepeatedSegments
	}

	if u.RawQuery != "" {
		if rule := f.checkQuery(u.RawQuery); !rule.Accepted() {
			return rule
		}
	}

	if f.similarity && f.similarToRecent(rawURL) {
		return RuleSimilarURL
	}

	return RuleAccepted
}

// Recent returns the recently admitted URLs, oldest first.
func (f *Filter) Recent() []string {
	out := make([]string, 0, f.recent.Len())
	f.recent.Each(func(r recentURL) bool {
		out = append(out, r.url)
		return true
	})
	return out
}

func (f *Filter) remember(rawURL string) {
	f.recent.Push(recentURL{url: rawURL, chars: splitChars(rawURL)})
}

// allowedHost matches host against the allowed suffixes on a label boundary,
// so "ics.uci.edu" admits "www.ics.uci.edu" but not "physics.uci.edu".
func (f *Filter) allowedHost(host, urlPath string) bool {
	if host == "" {
		return false
	}
	for _, suffix := range f.allowedDomains {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	if f.specialHost != "" && host == f.specialHost {
		return strings.HasPrefix(urlPath, f.specialPathPrefix)
	}
	return false
}

func (f *Filter) hasDisallowedExtension(lowerPath string) bool {
	ext := path.Ext(lowerPath)
	if ext == "" {
		return false
	}
	_, ok := f.extensions[ext[1:]]
	return ok
}

// repeatsSegments reports whether a path with more than maxPathSegments
// non-empty segments contains the same segment twice.
func (f *Filter) repeatsSegments(urlPath string) bool {
	segments := strings.FieldsFunc(urlPath, func(r rune) bool { return r == '/' })
	if len(segments) <= f.maxPathSegments {
		return false
	}

	seen := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		if _, ok := seen[s]; ok {
			return true
		}
		seen[s] = struct{}{}
	}
	return false
}

func (f *Filter) checkQuery(rawQuery string) Rule {
	lower := strings.ToLower(rawQuery)
	if containsAny(lower, f.trapKeywords) {
		return RuleQueryTrap
	}

	decoded, err := url.QueryUnescape(lower)
	if err != nil {
		decoded = lower
	}
	values := strings.FieldsFunc(decoded, func(r rune) bool {
		return r == '&' || r == '=' || r == ';'
	})
	for _, v := range values {
		if f.hasDisallowedExtension(v) {
			return RuleQueryExtension
		}
	}

	params := strings.FieldsFunc(rawQuery, func(r rune) bool { return r == '&' })
	if len(params) >= f.maxQueryParams {
		return RuleQueryParams
	}
	return RuleAccepted
}

// similarToRecent compares rawURL with every recently admitted URL using the
// longest-matching-block ratio. The cheap upper bounds are checked first so
// most comparisons never reach the full ratio.
func (f *Filter) similarToRecent(rawURL string) bool {
	if f.recent.Len() == 0 {
		return false
	}

	matcher := difflib.NewMatcherWithJunk(nil, splitChars(rawURL), false, nil)
	similar := false
	f.recent.Each(func(r recentURL) bool {
		matcher.SetSeq1(r.chars)
		if matcher.RealQuickRatio() < f.threshold || matcher.QuickRatio() < f.threshold {
			return true
		}
		if matcher.Ratio() >= f.threshold {
			similar = true
			return false
		}
		return true
	})
	return similar
}

// Similarity returns the character-level ratio between two URLs in [0, 1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcherWithJunk(splitChars(a), splitChars(b), false, nil).Ratio()
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
