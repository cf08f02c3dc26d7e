package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/report"
)

const (
	testPageURL  = "https://www.ics.uci.edu/"
	testAboutURL = "https://www.ics.uci.edu/about"
	testDeepURL  = "https://www.ics.uci.edu/research/areas/machine-learning/index.html"
)

// executeRoot runs the root command with args and returns its output streams.
func executeRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a config file into dir so tests never pick up a
// .crawlcore from the working or home directory.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "crawlcore.yaml")
	if err := os.WriteFile(path, []byte("topWords: 10\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// testPage returns an HTML page with enough visible text to be informative.
// Pages built from different seeds share no body words.
func testPage(seed string, hrefs ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>test page</title></head><body><p>")
	for i := range 40 {
		fmt.Fprintf(&sb, "%sword%d ", seed, i)
	}
	sb.WriteString("</p>")
	for _, href := range hrefs {
		fmt.Fprintf(&sb, `<a href="%s">link</a>`, href)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// saveSnapshot writes snap as a JSON checkpoint at path.
func saveSnapshot(t *testing.T, path string, snap *model.Snapshot) {
	t.Helper()

	if err := checkpoint.NewJSONStore(path).Save(context.Background(), snap); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
}

// lines splits output into non-empty lines.
func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// TestProcessCmd tests processing a single page from the command line.
func TestProcessCmd(t *testing.T) {
	t.Parallel()

	page := testPage("a", "/about", "/login", "https://example.com/", testDeepURL+"#top")

	t.Run("prints admitted links and skips them on the next run", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)
		cpPath := filepath.Join(dir, "report.db")

		stdout, _, err := executeRoot(t, page,
			"process", "-c", cfgPath, "-C", cpPath, "--url", testPageURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := lines(stdout)
		want := []string{testAboutURL, testDeepURL}
		if len(got) != len(want) {
			t.Fatalf("expected links %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("link %d: expected %q, got %q", i, want[i], got[i])
			}
		}

		if _, err := os.Stat(cpPath); err != nil {
			t.Fatalf("expected checkpoint to be written: %v", err)
		}

		stdout, _, err = executeRoot(t, page,
			"process", "-c", cfgPath, "-C", cpPath, "--url", testPageURL)
		if err != nil {
			t.Fatalf("unexpected error on second run: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected no links for already seen targets, got %q", stdout)
		}
	})

	t.Run("reads the body from a file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)
		pagePath := filepath.Join(dir, "index.html")
		if err := os.WriteFile(pagePath, []byte(page), 0600); err != nil {
			t.Fatal(err)
		}

		stdout, _, err := executeRoot(t, "",
			"process", "-c", cfgPath, "--no-checkpoint", "--url", testPageURL, pagePath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines(stdout)) != 2 {
			t.Errorf("expected 2 links, got %q", stdout)
		}
	})

	t.Run("explains a rejected page", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeTestConfig(t, t.TempDir())

		stdout, stderr, err := executeRoot(t, page,
			"process", "-c", cfgPath, "--no-checkpoint", "--url", testPageURL, "--status", "404")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected no links, got %q", stdout)
		}
		if !strings.Contains(stderr, "page skipped: bad_status") {
			t.Errorf("expected rejection reason on stderr, got %q", stderr)
		}
	})

	t.Run("prints the decision as JSON", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeTestConfig(t, t.TempDir())

		stdout, _, err := executeRoot(t, page,
			"process", "-c", cfgPath, "--no-checkpoint", "--url", testPageURL, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var out pageOutput
		if err := json.Unmarshal([]byte(stdout), &out); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
		}
		if out.URL != testPageURL {
			t.Errorf("expected url %q, got %q", testPageURL, out.URL)
		}
		if out.Reason != "processed" {
			t.Errorf("expected reason 'processed', got %q", out.Reason)
		}
		if len(out.Links) != 2 {
			t.Errorf("expected 2 links, got %v", out.Links)
		}
	})

	t.Run("near duplicate history does not carry across runs", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)
		cpPath := filepath.Join(dir, "report.db")

		for _, pageURL := range []string{testPageURL, testAboutURL} {
			stdout, _, err := executeRoot(t, page,
				"process", "-c", cfgPath, "-C", cpPath, "--url", pageURL, "--json")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var out pageOutput
			if err := json.Unmarshal([]byte(stdout), &out); err != nil {
				t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
			}
			if out.Reason != "processed" {
				t.Errorf("expected %s to be processed, got %q", pageURL, out.Reason)
			}
		}

		if long := NewProcessCmd().Long; !strings.Contains(long, "starts with empty history") {
			t.Error("expected the help text to explain that history is per run")
		}
	})

	t.Run("requires url", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeTestConfig(t, t.TempDir())

		_, _, err := executeRoot(t, page, "process", "-c", cfgPath, "--no-checkpoint")
		if err == nil {
			t.Error("expected error without --url")
		}
	})
}

// TestReplayCmd tests replaying a fetch log and reporting on the result.
func TestReplayCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	cpPath := filepath.Join(dir, "crawl.json")

	bodyPath := filepath.Join(dir, "pages", "b.html")
	if err := os.MkdirAll(filepath.Dir(bodyPath), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bodyPath, []byte(testPage("b", testDeepURL)), 0600); err != nil {
		t.Fatal(err)
	}

	records := []model.FetchRecord{
		{URL: testPageURL, Status: 200, ContentType: "text/html", Body: []byte(testPage("a", "/about"))},
		{URL: "https://www.ics.uci.edu/b", Status: 200, ContentType: "text/html; charset=utf-8", BodyFile: "pages/b.html"},
		{Status: 200, ContentType: "text/html"},
	}
	var log strings.Builder
	log.WriteString("# fetch log\n\n")
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatal(err)
		}
		log.Write(data)
		log.WriteString("\n")
	}
	log.WriteString("{broken\n")
	logPath := filepath.Join(dir, "fetches.jsonl")
	if err := os.WriteFile(logPath, []byte(log.String()), 0600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := executeRoot(t, "",
		"replay", "-c", cfgPath, "-C", cpPath, "-n", "2", logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}

	got := lines(stdout)
	if !slices.Equal(got, []string{testAboutURL, testDeepURL}) {
		t.Fatalf("expected links in log order, got %v", got)
	}
	if !strings.Contains(stderr, "Pages processed: 2") {
		t.Errorf("expected replay summary on stderr, got %q", stderr)
	}
	if !strings.Contains(stderr, "fetch record has no url") {
		t.Errorf("expected invalid record to be reported, got %q", stderr)
	}
	if !strings.Contains(stderr, "invalid fetch record on line 6") {
		t.Errorf("expected invalid JSON line to be reported, got %q", stderr)
	}

	stdout, _, err = executeRoot(t, "", "report", "-c", cfgPath, "-C", cpPath, "--json")
	if err != nil {
		t.Fatalf("unexpected report error: %v", err)
	}
	var rep report.JSONReport
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("invalid report JSON: %v\n%s", err, stdout)
	}
	if rep.Summary == nil {
		t.Fatal("expected summary in report")
	}
	if rep.Summary.PagesProcessed != 2 {
		t.Errorf("expected 2 pages processed, got %d", rep.Summary.PagesProcessed)
	}
	if rep.Summary.UniquePages != 2 {
		t.Errorf("expected 2 unique pages, got %d", rep.Summary.UniquePages)
	}
	if len(rep.Summary.TopWords) != 10 {
		t.Errorf("expected 10 top words from config, got %d", len(rep.Summary.TopWords))
	}
}

// TestCheckCmd tests the admission filter command.
func TestCheckCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "reports the deciding rule",
			args: []string{
				testAboutURL,
				"https://www.ics.uci.edu/login",
				"https://example.com/",
				"https://www.ics.uci.edu/events/?ical=1",
				"mailto:someone@uci.edu",
			},
			want: []string{
				"accepted\t" + testAboutURL,
				"rejected\thttps://www.ics.uci.edu/login\tblocked_path",
				"rejected\thttps://example.com/\tdomain",
				"rejected\thttps://www.ics.uci.edu/events/?ical=1\tquery_trap",
				"rejected\tmailto:someone@uci.edu\tscheme",
			},
		},
		{
			name: "remembers earlier arguments",
			args: []string{testAboutURL, testAboutURL},
			want: []string{
				"accepted\t" + testAboutURL,
				"rejected\t" + testAboutURL + "\tsimilar_url",
			},
		},
		{
			name: "judges each argument alone when stateless",
			args: []string{"--stateless", testAboutURL, testAboutURL},
			want: []string{
				"accepted\t" + testAboutURL,
				"accepted\t" + testAboutURL,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfgPath := writeTestConfig(t, t.TempDir())
			args := append([]string{"check", "-c", cfgPath}, tt.args...)

			stdout, _, err := executeRoot(t, "", args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := lines(stdout)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d lines, got %v", len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}

	t.Run("requires a URL", func(t *testing.T) {
		t.Parallel()

		if _, _, err := executeRoot(t, "", "check"); err == nil {
			t.Error("expected error without arguments")
		}
	})
}

// createReportSnapshot returns a snapshot with two monitored subdomains and
// one outside the monitored domain.
func createReportSnapshot(pages int64) *model.Snapshot {
	snap := model.NewSnapshot()
	snap.PagesProcessed = pages
	snap.UniquePages = []string{
		"http://vision.ics.uci.edu/a",
		"http://vision.ics.uci.edu/b",
		"http://www.ics.uci.edu/c",
		"http://www.stat.uci.edu/d",
	}
	snap.Subdomains = map[string]int{
		"http://vision.ics.uci.edu": 2,
		"http://www.ics.uci.edu":    1,
		"http://www.stat.uci.edu":   1,
	}
	snap.WordFrequency = map[string]int{"the": 100, "student": 12, "research": 7}
	snap.LongestPage = model.LongestPage{URL: "http://www.ics.uci.edu/c", TokenCount: 900}
	return snap
}

// TestReportCmd tests the report command.
func TestReportCmd(t *testing.T) {
	t.Parallel()

	t.Run("summarizes the checkpoint", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)
		cpPath := filepath.Join(dir, "crawl.json")
		saveSnapshot(t, cpPath, createReportSnapshot(10))

		stdout, _, err := executeRoot(t, "", "report", "-c", cfgPath, "-C", cpPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			"CRAWL REPORT",
			"Unique pages so far:  4",
			"Longest page so far:  http://www.ics.uci.edu/c (900 words)",
			"Number of ics.uci.edu subdomains: 2",
			"http://vision.ics.uci.edu, 2",
			"student",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
		for _, unwanted := range []string{"www.stat.uci.edu", " the "} {
			if strings.Contains(stdout, unwanted) {
				t.Errorf("did not expect %q in output:\n%s", unwanted, stdout)
			}
		}
	})

	t.Run("limits subdomains", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)
		cpPath := filepath.Join(dir, "crawl.json")
		saveSnapshot(t, cpPath, createReportSnapshot(10))

		stdout, _, err := executeRoot(t, "", "report", "-c", cfgPath, "-C", cpPath, "--limit", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "... and 1 more") {
			t.Errorf("expected hidden subdomain note in output:\n%s", stdout)
		}
	})

	t.Run("writes markdown to a file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)
		cpPath := filepath.Join(dir, "crawl.json")
		outPath := filepath.Join(dir, "out", "report.md")
		saveSnapshot(t, cpPath, createReportSnapshot(10))

		_, stderr, err := executeRoot(t, "",
			"report", "-c", cfgPath, "-C", cpPath, "--markdown", "-o", outPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, outPath) {
			t.Errorf("expected output path on stderr, got %q", stderr)
		}

		content, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Crawl Report") {
			t.Errorf("expected markdown heading, got:\n%s", content)
		}
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)

		stdout, _, err := executeRoot(t, "",
			"report", "-c", cfgPath, "-C", filepath.Join(dir, "missing.db"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(stdout) != noCheckpointMessage {
			t.Errorf("expected %q, got %q", noCheckpointMessage, stdout)
		}
	})

	t.Run("json and markdown are exclusive", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir)

		_, _, err := executeRoot(t, "",
			"report", "-c", cfgPath, "-C", filepath.Join(dir, "missing.db"), "--json", "--markdown")
		if err == nil {
			t.Error("expected error for --json with --markdown")
		}
	})
}

// TestCompareCmd tests comparing two checkpoints.
func TestCompareCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	oldPath := filepath.Join(dir, "old.json")
	older := createReportSnapshot(10)
	delete(older.Subdomains, "http://vision.ics.uci.edu")
	older.UniquePages = older.UniquePages[2:]
	saveSnapshot(t, oldPath, older)

	newPath := filepath.Join(dir, "new.json")
	saveSnapshot(t, newPath, createReportSnapshot(25))

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeRoot(t, "", "compare", "-c", cfgPath, oldPath, newPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"CHECKPOINT COMPARISON",
			"Pages processed: +15",
			"Unique pages:    2 -> 4 (+2)",
			"[+] http://vision.ics.uci.edu, 2",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeRoot(t, "", "compare", "-c", cfgPath, "--json", oldPath, newPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var rep report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		if rep.Comparison == nil {
			t.Fatal("expected comparison in output")
		}
		if rep.Comparison.PagesDelta != 15 {
			t.Errorf("expected pages delta 15, got %d", rep.Comparison.PagesDelta)
		}
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeRoot(t, "",
			"compare", "-c", cfgPath, filepath.Join(dir, "absent.json"), newPath)
		if err == nil {
			t.Error("expected error for missing checkpoint")
		}
	})

	t.Run("requires two arguments", func(t *testing.T) {
		t.Parallel()

		if _, _, err := executeRoot(t, "", "compare", "-c", cfgPath, oldPath); err == nil {
			t.Error("expected error with one argument")
		}
	})
}

// TestLogJSON tests that --log-json switches log records to JSON.
func TestLogJSON(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, t.TempDir())

	_, stderr, err := executeRoot(t, testPage("a", "/about"),
		"process", "-c", cfgPath, "--no-checkpoint", "-v", "--log-json", "--url", testPageURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, `"msg":"page processed"`) {
		t.Errorf("expected JSON log record on stderr, got %q", stderr)
	}
}
