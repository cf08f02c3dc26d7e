package pipeline

import (
	"net/url"

	"github.com/nao1215/crawlcore/internal/crawler"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/tokenizer"
)

// PageState carries one fetched page through the pipeline.
// It is created per page and never shared between goroutines.
type PageState struct {
	// URL is the URL the host framework requested.
	URL string

	// Fetch is the response under processing.
	Fetch *model.FetchResult

	// Reason is set by the step that rejects the page.
	Reason model.Reason

	// Parsed is the extractor output.
	Parsed *crawler.ParseResult

	// Base is the URL links resolve against.
	Base *url.URL

	// Tokens are the page's word tokens in document order.
	Tokens []string

	// TokenSet is the set view of Tokens.
	TokenSet tokenizer.TokenSet

	// DuplicateOf is the window member a near-duplicate page matched, or the
	// most similar member when the page was kept.
	DuplicateOf string

	// Similarity is the Jaccard score against DuplicateOf.
	Similarity float64

	// Candidates are newly discovered canonical link targets.
	Candidates []string

	// Links are the candidates the admission filter accepted.
	Links []string

	// Rules counts admission filter rejections by rule.
	Rules map[crawler.Rule]int
}

// NewPageState creates the state for a page requested at requestedURL.
func NewPageState(requestedURL string, fetch *model.FetchResult) *PageState {
	return &PageState{
		URL:        requestedURL,
		Fetch:      fetch,
		Candidates: make([]string, 0),
		Links:      make([]string, 0),
		Rules:      make(map[crawler.Rule]int),
	}
}

// Reject stops the pipeline with reason.
func (s *PageState) Reject(reason model.Reason) {
	s.Reason = reason
}

// Rejected reports whether a step rejected the page.
func (s *PageState) Rejected() bool {
	return s.Reason.Rejected()
}
