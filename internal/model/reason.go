package model

import "fmt"

// Reason explains why the core stopped processing a fetched page.
// ReasonNone means the page went through the whole pipeline.
//
// Design decision: We use iota-based constants rather than error values
// because a rejected page is an expected outcome, not a failure. Callers
// switch on the reason instead of unwrapping errors.
type Reason int

const (
	// ReasonNone indicates the page was fully processed.
	ReasonNone Reason = iota

	// ReasonStatus indicates the response status code was not 200.
	ReasonStatus

	// ReasonEmptyContent indicates the response carried no body.
	ReasonEmptyContent

	// ReasonNotHTML indicates the content type is not HTML.
	ReasonNotHTML

	// ReasonMalformedURL indicates the page URL itself could not be parsed.
	ReasonMalformedURL

	// ReasonMalformedHTML indicates the body could not be parsed into a document.
	ReasonMalformedHTML

	// ReasonLowInformation indicates the visible text is below the minimum length.
	ReasonLowInformation

	// ReasonNearDuplicate indicates the page is too similar to a recently seen page.
	ReasonNearDuplicate
)

// reasonNames maps reasons to their stable text form.
// The text form is used in logs, JSON output, and the replay summary.
var reasonNames = map[Reason]string{
	ReasonNone:           "processed",
	ReasonStatus:         "bad_status",
	ReasonEmptyContent:   "empty_content",
	ReasonNotHTML:        "not_html",
	ReasonMalformedURL:   "malformed_url",
	ReasonMalformedHTML:  "malformed_html",
	ReasonLowInformation: "low_information",
	ReasonNearDuplicate:  "near_duplicate",
}

// String returns the stable text form of the reason.
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// Rejected reports whether the reason stops the pipeline.
func (r Reason) Rejected() bool {
	return r != ReasonNone
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	for reason, name := range reasonNames {
		if name == string(text) {
			*r = reason
			return nil
		}
	}
	return fmt.Errorf("unknown reason %q", string(text))
}

// Reasons returns every reason in declaration order.
func Reasons() []Reason {
	return []Reason{
		ReasonNone,
		ReasonStatus,
		ReasonEmptyContent,
		ReasonNotHTML,
		ReasonMalformedURL,
		ReasonMalformedHTML,
		ReasonLowInformation,
		ReasonNearDuplicate,
	}
}
