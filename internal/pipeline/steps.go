package pipeline

import (
	"bytes"
	"context"
	"net/http"

	"github.com/nao1215/crawlcore/internal/crawler"
	"github.com/nao1215/crawlcore/internal/dedup"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/stats"
	"github.com/nao1215/crawlcore/internal/tokenizer"
)

// ResponseStep rejects responses that cannot contain a crawlable page:
// a status other than 200, an empty body, or a non-HTML content type.
type ResponseStep struct{}

// NewResponseStep creates a new response check step.
func NewResponseStep() *ResponseStep {
	return &ResponseStep{}
}

// Name returns the step name.
func (s *ResponseStep) Name() string {
	return "response"
}

// Do executes the response check.
func (s *ResponseStep) Do(_ context.Context, state *PageState) error {
	switch {
	case state.Fetch == nil:
		state.Reject(model.ReasonEmptyContent)
	case state.Fetch.StatusCode != http.StatusOK:
		state.Reject(model.ReasonStatus)
	case !state.Fetch.HasContent():
		state.Reject(model.ReasonEmptyContent)
	case !state.Fetch.IsHTML():
		state.Reject(model.ReasonNotHTML)
	}
	return nil
}

// ExtractStep parses the page and rejects malformed or low-information
// documents.
//
// Design decision: The text-length gate sits right after parsing because
// near-empty and interstitial pages would otherwise cost a tokenizer pass,
// a window comparison and a word-frequency update for no information.
type ExtractStep struct {
	// minTextLength is the shortest visible text, in characters, kept.
	minTextLength int
}

// NewExtractStep creates a new extraction step.
func NewExtractStep(minTextLength int) *ExtractStep {
	return &ExtractStep{minTextLength: minTextLength}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extraction step.
func (s *ExtractStep) Do(_ context.Context, state *PageState) error {
	parser, err := crawler.NewParser(state.Fetch.BaseURL())
	if err != nil {
		state.Reject(model.ReasonMalformedURL)
		return nil
	}

	result := parser.Parse(bytes.NewReader(state.Fetch.Body))
	if result.Outcome != crawler.OutcomeOK {
		state.Reject(model.ReasonMalformedHTML)
		return nil
	}

	state.Parsed = result
	state.Base = parser.Base(result)

	if result.TextLength() < s.minTextLength {
		state.Reject(model.ReasonLowInformation)
	}
	return nil
}

// TokenizeStep turns the visible text into tokens and their set view.
type TokenizeStep struct{}

// NewTokenizeStep creates a new tokenize step.
func NewTokenizeStep() *TokenizeStep {
	return &TokenizeStep{}
}

// Name returns the step name.
func (s *TokenizeStep) Name() string {
	return "tokenize"
}

// Do executes the tokenize step.
func (s *TokenizeStep) Do(_ context.Context, state *PageState) error {
	state.Tokens = tokenizer.Tokenize(state.Parsed.Text)
	state.TokenSet = tokenizer.NewTokenSet(state.Tokens)
	return nil
}

// DuplicateStep rejects pages too similar to a recently accepted page.
// A kept page enters the detector's window.
type DuplicateStep struct {
	detector *dedup.Detector
}

// NewDuplicateStep creates a new near-duplicate step.
func NewDuplicateStep(detector *dedup.Detector) *DuplicateStep {
	return &DuplicateStep{detector: detector}
}

// Name returns the step name.
func (s *DuplicateStep) Name() string {
	return "dedup"
}

// Do executes the near-duplicate check.
func (s *DuplicateStep) Do(_ context.Context, state *PageState) error {
	dup, match, score := s.detector.Check(state.URL, state.TokenSet)
	state.DuplicateOf = match
	state.Similarity = score
	if dup {
		state.Reject(model.ReasonNearDuplicate)
	}
	return nil
}

// RecordPageStep adds an accepted page to the word frequencies and the
// longest page record.
type RecordPageStep struct {
	stats *stats.Aggregator
}

// NewRecordPageStep creates a new page statistics step.
func NewRecordPageStep(agg *stats.Aggregator) *RecordPageStep {
	return &RecordPageStep{stats: agg}
}

// Name returns the step name.
func (s *RecordPageStep) Name() string {
	return "record_page"
}

// Do executes the page statistics update.
func (s *RecordPageStep) Do(_ context.Context, state *PageState) error {
	s.stats.RecordPage(state.URL, state.Tokens)
	return nil
}

// LinkStep canonicalizes every anchor and records the targets not seen
// before. Only those become admission candidates.
type LinkStep struct {
	stats *stats.Aggregator
}

// NewLinkStep creates a new link discovery step.
func NewLinkStep(agg *stats.Aggregator) *LinkStep {
	return &LinkStep{stats: agg}
}

// Name returns the step name.
func (s *LinkStep) Name() string {
	return "links"
}

// Do executes the link discovery step.
func (s *LinkStep) Do(_ context.Context, state *PageState) error {
	for _, href := range state.Parsed.Links {
		canonical, ok := crawler.Canonicalize(state.Base, href)
		if !ok {
			continue
		}
		if s.stats.RecordLink(canonical) {
			state.Candidates = append(state.Candidates, canonical)
		}
	}
	return nil
}

// AdmissionStep runs every candidate through the URL admission filter.
type AdmissionStep struct {
	filter *crawler.Filter
}

// NewAdmissionStep creates a new admission step.
func NewAdmissionStep(filter *crawler.Filter) *AdmissionStep {
	return &AdmissionStep{filter: filter}
}

// Name returns the step name.
func (s *AdmissionStep) Name() string {
	return "admission"
}

// Do executes the admission step.
func (s *AdmissionStep) Do(_ context.Context, state *PageState) error {
	for _, candidate := range state.Candidates {
		rule := s.filter.Admit(candidate)
		if rule.Accepted() {
			state.Links = append(state.Links, candidate)
			continue
		}
		state.Rules[rule]++
	}
	return nil
}
