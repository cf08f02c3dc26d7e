package model

import (
	"mime"
	"strings"
)

// FetchResult is a fetched response handed to the core by the host crawling
// framework. The core never performs network I/O itself, so everything it
// knows about a page arrives through this structure.
//
// Design decision: Body is a byte slice rather than an io.Reader because:
//  1. The host framework already buffered the response
//  2. A nil slice expresses "content absent" without extra flags
//  3. The extractor may need to inspect the bytes more than once
type FetchResult struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL of the page after redirects.
	// Empty when the host framework did not report it.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the raw Content-Type header value.
	ContentType string `json:"content_type"`

	// Body is the raw response content. Nil means absent.
	Body []byte `json:"-"`
}

// MaxPageSize is the maximum size of raw page content the core inspects.
// Larger bodies are truncated before parsing.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// BaseURL returns the URL relative links of this page resolve against:
// the final URL if the host reported one, otherwise the requested URL.
func (f *FetchResult) BaseURL() string {
	if f.FinalURL != "" {
		return f.FinalURL
	}
	return f.URL
}

// HasContent reports whether the response carried a non-empty body.
func (f *FetchResult) HasContent() bool {
	return len(f.Body) > 0
}

// IsHTML returns true if the content type indicates HTML.
// Parameters such as charset are ignored.
func (f *FetchResult) IsHTML() bool {
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil {
		// Fall back to a prefix check for sloppy headers like "text/html;"
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// TruncateBody ensures the body doesn't exceed MaxPageSize.
func (f *FetchResult) TruncateBody() {
	if len(f.Body) > MaxPageSize {
		f.Body = f.Body[:MaxPageSize]
	}
}
