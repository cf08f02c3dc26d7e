package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/nao1215/crawlcore/internal/model"
)

// jsonl renders records as a JSON Lines fetch log.
func jsonl(t *testing.T, records ...model.FetchRecord) string {
	t.Helper()

	var sb strings.Builder
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("failed to marshal record: %v", err)
		}
		sb.Write(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// pageRecord returns a 200 HTML record for path with text seeded by seed.
func pageRecord(path, seed string, hrefs ...string) model.FetchRecord {
	return model.FetchRecord{
		URL:         "http://www.ics.uci.edu" + path,
		Status:      200,
		ContentType: "text/html",
		Body:        htmlPage(pageText(seed), hrefs...),
	}
}

// TestJSONLSource tests reading a fetch log.
func TestJSONLSource(t *testing.T) {
	t.Parallel()

	t.Run("skips blank and comment lines", func(t *testing.T) {
		t.Parallel()

		log := "# fetched 2024-01-01\n\n" +
			jsonl(t, pageRecord("/one", "a"), pageRecord("/two", "b"))
		src := NewJSONLSource(strings.NewReader(log))

		var urls []string
		for {
			rec, err := src.Next(context.Background())
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			urls = append(urls, rec.URL)
		}

		if len(urls) != 2 || urls[0] != "http://www.ics.uci.edu/one" {
			t.Errorf("unexpected urls %v", urls)
		}
	})

	t.Run("reports the line of invalid json and moves on", func(t *testing.T) {
		t.Parallel()

		log := jsonl(t, pageRecord("/one", "a")) + "{not json\n" + jsonl(t, pageRecord("/two", "b"))
		src := NewJSONLSource(strings.NewReader(log))
		if _, err := src.Next(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := src.Next(context.Background())
		if !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("expected ErrInvalidRecord, got %v", err)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("expected error on line 2, got %v", err)
		}

		rec, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error after invalid line: %v", err)
		}
		if rec.URL != "http://www.ics.uci.edu/two" {
			t.Errorf("unexpected url %q", rec.URL)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := NewJSONLSource(strings.NewReader(jsonl(t, pageRecord("/one", "a"))))
		if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(NewProcessor(nil, nil))
		if bp.concurrency != defaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", defaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(NewProcessor(nil, nil), WithConcurrency(7), WithBaseDir("/tmp/log"))
		if bp.concurrency != 7 {
			t.Errorf("expected concurrency 7, got %d", bp.concurrency)
		}
		if bp.baseDir != "/tmp/log" {
			t.Errorf("unexpected base dir %q", bp.baseDir)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(NewProcessor(nil, nil), WithConcurrency(0))
		if bp.concurrency != defaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", defaultConcurrency, bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessSource tests replaying a fetch log.
func TestBatchProcessorProcessSource(t *testing.T) {
	t.Parallel()

	t.Run("processes every record", func(t *testing.T) {
		t.Parallel()

		log := jsonl(t,
			pageRecord("/one", "a", "/alpha"),
			pageRecord("/two", "b", "/beta"),
			model.FetchRecord{URL: "http://www.ics.uci.edu/missing", Status: 404, ContentType: "text/html"},
			pageRecord("/three", "c", "/gamma"),
		)
		proc := NewProcessor(nil, nil)
		bp := NewBatchProcessor(proc, WithConcurrency(2))

		var (
			mu      sync.Mutex
			indexes = make(map[int]model.Reason)
		)
		err := bp.ProcessSource(context.Background(), NewJSONLSource(strings.NewReader(log)),
			func(index int, _ *model.FetchRecord, result Result) {
				mu.Lock()
				indexes[index] = result.Reason
				mu.Unlock()
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(indexes) != 4 {
			t.Fatalf("expected 4 callbacks, got %d", len(indexes))
		}
		if indexes[2] != model.ReasonStatus {
			t.Errorf("expected record 2 to be bad_status, got %s", indexes[2])
		}
		if got := proc.Stats().PagesProcessed; got != 4 {
			t.Errorf("expected 4 pages processed, got %d", got)
		}
	})

	t.Run("reads body files relative to the base dir", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "one.html"), htmlPage(pageText("a"), "/alpha"), 0o600); err != nil {
			t.Fatalf("failed to write body: %v", err)
		}
		log := jsonl(t, model.FetchRecord{
			URL:         "http://www.ics.uci.edu/one",
			Status:      200,
			ContentType: "text/html",
			BodyFile:    "one.html",
		})

		var links []string
		bp := NewBatchProcessor(NewProcessor(nil, nil), WithBaseDir(dir), WithConcurrency(1))
		err := bp.ProcessSource(context.Background(), NewJSONLSource(strings.NewReader(log)),
			func(_ int, _ *model.FetchRecord, result Result) {
				links = result.Links
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links) != 1 || links[0] != "http://www.ics.uci.edu/alpha" {
			t.Errorf("unexpected links %v", links)
		}
	})

	t.Run("invalid records do not stop the batch", func(t *testing.T) {
		t.Parallel()

		log := jsonl(t,
			model.FetchRecord{Status: 200, ContentType: "text/html"},
			pageRecord("/one", "a"),
		)
		proc := NewProcessor(nil, nil)

		var (
			mu   sync.Mutex
			errs int
		)
		bp := NewBatchProcessor(proc, WithConcurrency(1))
		err := bp.ProcessSource(context.Background(), NewJSONLSource(strings.NewReader(log)),
			func(_ int, _ *model.FetchRecord, result Result) {
				if result.Err != nil {
					mu.Lock()
					errs++
					mu.Unlock()
				}
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if errs != 1 {
			t.Errorf("expected 1 invalid record, got %d", errs)
		}
		if got := proc.Stats().PagesProcessed; got != 1 {
			t.Errorf("expected 1 page processed, got %d", got)
		}
	})

	t.Run("invalid json lines are reported and skipped", func(t *testing.T) {
		t.Parallel()

		log := "{not json\n" + jsonl(t, pageRecord("/one", "a", "/alpha"))
		proc := NewProcessor(nil, nil)

		var results []Result
		bp := NewBatchProcessor(proc, WithConcurrency(2))
		err := bp.ProcessSource(context.Background(), NewJSONLSource(strings.NewReader(log)),
			func(_ int, _ *model.FetchRecord, result Result) {
				results = append(results, result)
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(results) != 2 {
			t.Fatalf("expected 2 callbacks, got %d", len(results))
		}
		if !errors.Is(results[0].Err, ErrInvalidRecord) || !strings.Contains(results[0].Err.Error(), "line 1") {
			t.Errorf("expected invalid record error on line 1, got %v", results[0].Err)
		}
		if results[1].Err != nil || len(results[1].Links) != 1 {
			t.Errorf("expected the valid record to be processed, got %+v", results[1])
		}
		if got := proc.Stats().PagesProcessed; got != 1 {
			t.Errorf("expected 1 page processed, got %d", got)
		}
	})

	t.Run("returns read errors", func(t *testing.T) {
		t.Parallel()

		readErr := errors.New("disk gone")
		input := io.MultiReader(strings.NewReader(jsonl(t, pageRecord("/one", "a"))), iotest.ErrReader(readErr))
		bp := NewBatchProcessor(NewProcessor(nil, nil))

		err := bp.ProcessSource(context.Background(), NewJSONLSource(input), nil)
		if !errors.Is(err, readErr) {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("decides pages in log order", func(t *testing.T) {
		t.Parallel()

		// Every page has the same visible text. The script padding shrinks
		// down the log so later pages parse faster than earlier ones.
		const pages = 8
		records := make([]model.FetchRecord, 0, pages)
		for i := range pages {
			body := fmt.Sprintf(`<html><head><script>var pad = "%s";</script></head><body><p>%s</p></body></html>`,
				strings.Repeat("x", (pages-i)*20000), pageText("same"))
			records = append(records, model.FetchRecord{
				URL:         fmt.Sprintf("http://www.ics.uci.edu/copy%d", i),
				Status:      200,
				ContentType: "text/html",
				Body:        []byte(body),
			})
		}
		log := jsonl(t, records...)

		for range 20 {
			var (
				order   []int
				results = make(map[int]Result)
			)
			bp := NewBatchProcessor(NewProcessor(nil, nil), WithConcurrency(4))
			err := bp.ProcessSource(context.Background(), NewJSONLSource(strings.NewReader(log)),
				func(index int, _ *model.FetchRecord, result Result) {
					order = append(order, index)
					results[index] = result
				})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for i, index := range order {
				if i != index {
					t.Fatalf("callbacks out of order: %v", order)
				}
			}
			if got := results[0].Reason; got != model.ReasonNone {
				t.Fatalf("expected the first page to be kept, got %s", got)
			}
			for i := 1; i < pages; i++ {
				result := results[i]
				if result.Reason != model.ReasonNearDuplicate {
					t.Fatalf("expected page %d to be a near duplicate, got %s", i, result.Reason)
				}
				if result.DuplicateOf != records[0].URL {
					t.Fatalf("expected page %d to duplicate %s, got %s", i, records[0].URL, result.DuplicateOf)
				}
			}
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(NewProcessor(nil, nil))
		err := bp.ProcessSource(ctx, NewJSONLSource(strings.NewReader(jsonl(t, pageRecord("/one", "a")))), nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
