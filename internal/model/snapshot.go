package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// SnapshotVersion is the current checkpoint schema version.
// Bump it when a field is added or its meaning changes.
const SnapshotVersion = 1

// ErrIncompleteSnapshot is returned when a snapshot misses a required part.
var ErrIncompleteSnapshot = errors.New("incomplete snapshot")

// LongestPage records the page with the largest token count seen so far.
type LongestPage struct {
	// URL is the requested URL of the page.
	URL string `json:"url"`

	// TokenCount is the number of word tokens on the page.
	TokenCount int `json:"token_count"`
}

// String returns the page in "(url, count)" form for terminal output.
func (l LongestPage) String() string {
	return fmt.Sprintf("(%s, %d)", l.URL, l.TokenCount)
}

// Snapshot is a point-in-time copy of the crawl statistics.
// It is what the checkpoint writer persists and what the report
// consumer reads back.
//
// Design decision: UniquePages is a sorted slice rather than a set because:
//  1. JSON has no set type
//  2. A sorted order makes checkpoints diffable across runs
//  3. Membership tests are never done on a snapshot, only on live state
type Snapshot struct {
	// Version is the schema version the snapshot was written with.
	Version int `json:"version"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`

	// PagesProcessed is the number of fetched pages handed to the core
	// when the snapshot was taken.
	PagesProcessed int64 `json:"pages_processed"`

	// UniquePages contains every canonical URL discovered as a link target.
	UniquePages []string `json:"unique_pages"`

	// Subdomains maps "http://host" keys to discovery counts.
	Subdomains map[string]int `json:"subdomains"`

	// WordFrequency maps tokens to their occurrence counts.
	WordFrequency map[string]int `json:"word_freq"`

	// LongestPage is the page with the most tokens.
	LongestPage LongestPage `json:"longest_page"`
}

// NewSnapshot returns an empty snapshot of the current version.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:       SnapshotVersion,
		CreatedAt:     time.Now().UTC(),
		UniquePages:   make([]string, 0),
		Subdomains:    make(map[string]int),
		WordFrequency: make(map[string]int),
	}
}

// Validate checks that the snapshot is structurally complete.
// Stores call it after decoding so a reader never hands out a partial snapshot.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrIncompleteSnapshot)
	}
	if s.Version <= 0 || s.Version > SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrIncompleteSnapshot, s.Version)
	}
	if s.UniquePages == nil {
		return fmt.Errorf("%w: missing unique pages", ErrIncompleteSnapshot)
	}
	if s.Subdomains == nil {
		return fmt.Errorf("%w: missing subdomains", ErrIncompleteSnapshot)
	}
	if s.WordFrequency == nil {
		return fmt.Errorf("%w: missing word frequencies", ErrIncompleteSnapshot)
	}
	return nil
}

// TotalWords returns the sum of all word counters.
func (s *Snapshot) TotalWords() int {
	total := 0
	for _, n := range s.WordFrequency {
		total += n
	}
	return total
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		PagesProcessed: s.PagesProcessed,
		UniquePages:    slices.Clone(s.UniquePages),
		Subdomains:     maps.Clone(s.Subdomains),
		WordFrequency:  maps.Clone(s.WordFrequency),
		LongestPage:    s.LongestPage,
	}
}
