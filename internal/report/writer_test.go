package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/crawlcore/internal/model"
)

// createTestSnapshot creates a snapshot with sample data for testing.
func createTestSnapshot() *model.Snapshot {
	snap := model.NewSnapshot()
	snap.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap.PagesProcessed = 120
	snap.UniquePages = []string{
		"http://www.ics.uci.edu/",
		"http://www.ics.uci.edu/about",
		"http://vision.ics.uci.edu/",
		"https://www.stat.uci.edu/",
	}
	snap.Subdomains = map[string]int{
		"http://www.ics.uci.edu":    2,
		"http://vision.ics.uci.edu": 1,
		"http://physics.uci.edu":    4,
	}
	snap.WordFrequency = map[string]int{
		"the":      50,
		"research": 12,
		"student":  12,
		"faculty":  7,
		"and":      40,
	}
	snap.LongestPage = model.LongestPage{URL: "http://www.ics.uci.edu/about", TokenCount: 812}
	return snap
}

// TestSummarize tests building a summary from a snapshot.
func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("filters and sorts subdomains", func(t *testing.T) {
		t.Parallel()

		s := Summarize(createTestSnapshot(), Options{MonitoredDomain: "ics.uci.edu"})

		if s.UniquePages != 4 {
			t.Errorf("expected 4 unique pages, got %d", s.UniquePages)
		}
		if s.SubdomainTotal != 2 {
			t.Fatalf("expected 2 subdomains, got %d", s.SubdomainTotal)
		}
		if s.Subdomains[0].Subdomain != "http://vision.ics.uci.edu" || s.Subdomains[1].Subdomain != "http://www.ics.uci.edu" {
			t.Errorf("subdomains not sorted: %v", s.Subdomains)
		}
	})

	t.Run("physics is not a subdomain of ics", func(t *testing.T) {
		t.Parallel()

		snap := model.NewSnapshot()
		snap.Subdomains = map[string]int{"http://physics.uci.edu": 1, "http://ics.uci.edu": 1}

		s := Summarize(snap, Options{MonitoredDomain: "ics.uci.edu"})
		if s.SubdomainTotal != 1 || s.Subdomains[0].Subdomain != "http://ics.uci.edu" {
			t.Errorf("unexpected subdomains %v", s.Subdomains)
		}
	})

	t.Run("limit keeps the total", func(t *testing.T) {
		t.Parallel()

		s := Summarize(createTestSnapshot(), Options{Limit: 1})
		if len(s.Subdomains) != 1 || s.SubdomainTotal != 3 {
			t.Errorf("expected 1 of 3 subdomains, got %d of %d", len(s.Subdomains), s.SubdomainTotal)
		}
	})

	t.Run("top words skip stop words and break ties by word", func(t *testing.T) {
		t.Parallel()

		s := Summarize(createTestSnapshot(), Options{TopK: 2})
		want := []WordCount{{"research", 12}, {"student", 12}}
		if len(s.TopWords) != 2 || s.TopWords[0] != want[0] || s.TopWords[1] != want[1] {
			t.Errorf("expected %v, got %v", want, s.TopWords)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		t.Parallel()

		s := Summarize(model.NewSnapshot(), Options{})
		if s.UniquePages != 0 || len(s.Subdomains) != 0 || len(s.TopWords) != 0 {
			t.Errorf("expected empty summary, got %+v", s)
		}
	})
}

// TestIsStopWord tests the stop word list.
func TestIsStopWord(t *testing.T) {
	t.Parallel()

	for _, w := range []string{"the", "and", "of", "you"} {
		if !IsStopWord(w) {
			t.Errorf("expected %q to be a stop word", w)
		}
	}
	for _, w := range []string{"research", "informatics", "uci"} {
		if IsStopWord(w) {
			t.Errorf("expected %q not to be a stop word", w)
		}
	}
}

// TestCompare tests diffing two checkpoints.
func TestCompare(t *testing.T) {
	t.Parallel()

	older := createTestSnapshot()
	newer := createTestSnapshot()
	newer.PagesProcessed = 170
	newer.UniquePages = append(newer.UniquePages, "http://ml.ics.uci.edu/")
	newer.Subdomains = map[string]int{
		"http://www.ics.uci.edu":    5,
		"http://vision.ics.uci.edu": 1,
		"http://physics.uci.edu":    4,
		"http://ml.ics.uci.edu":     1,
	}
	newer.WordFrequency = map[string]int{
		"research": 12,
		"student":  30,
		"faculty":  7,
		"machine":  9,
	}
	newer.LongestPage = model.LongestPage{URL: "http://ml.ics.uci.edu/", TokenCount: 1000}

	c := Compare(older, newer, 3)

	if c.PagesDelta != 50 || c.UniqueDelta != 1 {
		t.Errorf("unexpected deltas pages=%d unique=%d", c.PagesDelta, c.UniqueDelta)
	}
	if len(c.NewSubdomains) != 1 || c.NewSubdomains[0].Subdomain != "http://ml.ics.uci.edu" {
		t.Errorf("unexpected new subdomains %v", c.NewSubdomains)
	}
	if len(c.Subdomains) != 2 {
		t.Errorf("expected 2 changed subdomains, got %v", c.Subdomains)
	}
	if !c.LongestChanged {
		t.Error("expected longest page change")
	}

	want := []struct {
		word      string
		direction string
	}{
		{"student", directionUp},
		{"research", directionDown},
		{"machine", directionNew},
	}
	if len(c.TopWords) != len(want) {
		t.Fatalf("expected %d words, got %v", len(want), c.TopWords)
	}
	for i, w := range want {
		if c.TopWords[i].Word != w.word || c.TopWords[i].Direction != w.direction {
			t.Errorf("rank %d: expected %s %s, got %+v", i+1, w.word, w.direction, c.TopWords[i])
		}
	}
	if !c.HasChanges() {
		t.Error("expected changes")
	}

	if same := Compare(older, older, 3); same.HasChanges() {
		t.Errorf("identical checkpoints should have no changes: %+v", same)
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := Summarize(createTestSnapshot(), Options{MonitoredDomain: "ics.uci.edu", TopK: 3})
		if _, err := NewSimpleWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"CRAWL REPORT",
			"Unique pages so far:  4",
			"http://www.ics.uci.edu/about (812 words)",
			"Number of ics.uci.edu subdomains: 2",
			"http://vision.ics.uci.edu, 1",
			"research",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "physics") {
			t.Error("unexpected subdomain outside the monitored domain")
		}
	})

	t.Run("hides empty sections unless asked", func(t *testing.T) {
		t.Parallel()

		summary := Summarize(model.NewSnapshot(), Options{})

		var hidden bytes.Buffer
		if _, err := NewSimpleWriter(&hidden).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(hidden.String(), "TOP 0 WORDS") {
			t.Error("expected empty word section to be hidden")
		}

		var shown bytes.Buffer
		if _, err := NewSimpleWriter(&shown, WithShowEmpty(true)).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(shown.String(), "TOP 0 WORDS") {
			t.Error("expected empty word section to be shown")
		}
	})

	t.Run("writes comparison", func(t *testing.T) {
		t.Parallel()

		older := createTestSnapshot()
		newer := createTestSnapshot()
		newer.Subdomains["http://ml.ics.uci.edu"] = 3

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteComparison(Compare(older, newer, 5)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "[+] http://ml.ics.uci.edu, 3") {
			t.Errorf("expected new subdomain in output:\n%s", output)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary with chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := Summarize(createTestSnapshot(), Options{TopK: 3})
		if _, err := NewMarkdownWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Crawl Report", "## Subdomains", "## Top Words", "```mermaid", "research"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes comparison", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		snap := createTestSnapshot()
		if _, err := NewMarkdownWriter(&buf).WriteComparison(Compare(snap, snap, 3)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "# Checkpoint Comparison") {
			t.Error("expected comparison header")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := Summarize(createTestSnapshot(), Options{TopK: 2})
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", decoded.Version)
		}
		if decoded.Summary == nil || decoded.Summary.UniquePages != 4 {
			t.Errorf("unexpected summary %+v", decoded.Summary)
		}
		if decoded.Comparison != nil {
			t.Error("comparison should be omitted")
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := Summarize(model.NewSnapshot(), Options{})
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"summary\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})
}

// failWriter fails every write.
type failWriter struct{}

func (failWriter) WriteSummary(*Summary) (int, error)       { return 0, errors.New("write failed") }
func (failWriter) WriteComparison(*Comparison) (int, error) { return 0, errors.New("write failed") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, md bytes.Buffer
		w := NewMultiWriter(NewSimpleWriter(&text), NewMarkdownWriter(&md))
		n, err := w.WriteSummary(Summarize(createTestSnapshot(), Options{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 || text.Len() == 0 || md.Len() == 0 {
			t.Error("expected output from every writer")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMultiWriter(failWriter{}, NewSimpleWriter(&buf))
		if _, err := w.WriteComparison(Compare(model.NewSnapshot(), model.NewSnapshot(), 1)); err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("writer after a failure should not run")
		}
	})
}
