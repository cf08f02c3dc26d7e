package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoRecordURL is returned when a fetch record has no requested URL.
var ErrNoRecordURL = errors.New("fetch record has no url")

// FetchRecord is one line of a fetch log replayed through the core.
// The host framework (or a test fixture) writes one record per fetched page.
//
// Body is base64 in JSON (encoding/json's []byte encoding). BodyFile is an
// alternative for large pages; relative paths resolve against the log's directory.
type FetchRecord struct {
	URL         string `json:"url"`
	FinalURL    string `json:"final_url,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body,omitempty"`
	BodyFile    string `json:"body_file,omitempty"`
}

// FetchResult converts the record into the structure the core consumes.
// baseDir is used to resolve a relative BodyFile.
func (r *FetchRecord) FetchResult(baseDir string) (*FetchResult, error) {
	if r.URL == "" {
		return nil, ErrNoRecordURL
	}

	body := r.Body
	if len(body) == 0 && r.BodyFile != "" {
		path := r.BodyFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path) //nolint:gosec // Fetch log paths are user-provided by design
		if err != nil {
			return nil, fmt.Errorf("failed to read body file for %s: %w", r.URL, err)
		}
		body = data
	}

	result := &FetchResult{
		URL:         r.URL,
		FinalURL:    r.FinalURL,
		StatusCode:  r.Status,
		ContentType: r.ContentType,
		Body:        body,
	}
	result.TruncateBody()
	return result, nil
}
