package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/crawlcore/internal/model"
)

// Direction labels for a change between two checkpoints.
const (
	directionUp        = "up"
	directionDown      = "down"
	directionUnchanged = "unchanged"
	directionNew       = "new"
)

// SubdomainDelta is the change of one subdomain's count between checkpoints.
// Old is zero for a subdomain that only appears in the newer checkpoint.
type SubdomainDelta struct {
	Subdomain string `json:"subdomain"`
	Old       int    `json:"old"`
	New       int    `json:"new"`
	Delta     int    `json:"delta"`
}

// WordRank is the position of a top word in both checkpoints.
// Ranks start at 1; OldRank is zero when the word was not in the old top list.
type WordRank struct {
	Word      string `json:"word"`
	Count     int    `json:"count"`
	OldRank   int    `json:"old_rank"`
	NewRank   int    `json:"new_rank"`
	Direction string `json:"direction"`
}

// Comparison describes how a crawl progressed between two checkpoints.
type Comparison struct {
	OldCreatedAt time.Time `json:"old_created_at"`
	NewCreatedAt time.Time `json:"new_created_at"`

	// PagesDelta is the number of pages processed in between.
	PagesDelta int64 `json:"pages_delta"`

	// UniqueDelta is the growth of the unique page set.
	UniqueDelta int `json:"unique_delta"`

	// OldUnique and NewUnique are the unique page counts.
	OldUnique int `json:"old_unique"`
	NewUnique int `json:"new_unique"`

	// NewSubdomains lists subdomains absent from the old checkpoint.
	NewSubdomains []SubdomainCount `json:"new_subdomains"`

	// Subdomains lists every subdomain whose count changed, sorted by name.
	Subdomains []SubdomainDelta `json:"subdomains"`

	// OldLongest and NewLongest are the longest pages of each checkpoint.
	OldLongest model.LongestPage `json:"old_longest"`
	NewLongest model.LongestPage `json:"new_longest"`

	// LongestChanged reports whether a longer page was found in between.
	LongestChanged bool `json:"longest_changed"`

	// TopWords are the newer checkpoint's top words with their rank change.
	TopWords []WordRank `json:"top_words"`
}

// Compare diffs two checkpoints. topK bounds the compared word lists;
// zero uses DefaultTopK.
func Compare(older, newer *model.Snapshot, topK int) *Comparison {
	if topK <= 0 {
		topK = DefaultTopK
	}

	c := &Comparison{
		OldCreatedAt:   older.CreatedAt,
		NewCreatedAt:   newer.CreatedAt,
		PagesDelta:     newer.PagesProcessed - older.PagesProcessed,
		OldUnique:      len(older.UniquePages),
		NewUnique:      len(newer.UniquePages),
		OldLongest:     older.LongestPage,
		NewLongest:     newer.LongestPage,
		LongestChanged: older.LongestPage != newer.LongestPage,
		NewSubdomains:  make([]SubdomainCount, 0),
		Subdomains:     make([]SubdomainDelta, 0),
		TopWords:       make([]WordRank, 0),
	}
	c.UniqueDelta = c.NewUnique - c.OldUnique

	for key, count := range newer.Subdomains {
		prev, existed := older.Subdomains[key]
		if !existed {
			c.NewSubdomains = append(c.NewSubdomains, SubdomainCount{Subdomain: key, Count: count})
		}
		if prev != count {
			c.Subdomains = append(c.Subdomains, SubdomainDelta{
				Subdomain: key, Old: prev, New: count, Delta: count - prev,
			})
		}
	}
	slices.SortFunc(c.NewSubdomains, func(a, b SubdomainCount) int {
		return cmp.Compare(a.Subdomain, b.Subdomain)
	})
	slices.SortFunc(c.Subdomains, func(a, b SubdomainDelta) int {
		return cmp.Compare(a.Subdomain, b.Subdomain)
	})

	oldRanks := make(map[string]int, topK)
	for i, w := range TopWords(older.WordFrequency, topK) {
		oldRanks[w.Word] = i + 1
	}
	for i, w := range TopWords(newer.WordFrequency, topK) {
		rank := WordRank{Word: w.Word, Count: w.Count, OldRank: oldRanks[w.Word], NewRank: i + 1}
		rank.Direction = rankDirection(rank.OldRank, rank.NewRank)
		c.TopWords = append(c.TopWords, rank)
	}
	return c
}

// HasChanges reports whether anything differs between the checkpoints.
func (c *Comparison) HasChanges() bool {
	if c.PagesDelta != 0 || c.UniqueDelta != 0 || c.LongestChanged || len(c.Subdomains) > 0 {
		return true
	}
	for _, w := range c.TopWords {
		if w.Direction != directionUnchanged {
			return true
		}
	}
	return false
}

func rankDirection(oldRank, newRank int) string {
	switch {
	case oldRank == 0:
		return directionNew
	case newRank < oldRank:
		return directionUp
	case newRank > oldRank:
		return directionDown
	default:
		return directionUnchanged
	}
}
