package report

import (
	"cmp"
	"io"
	"slices"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxPieSlices bounds the subdomain pie chart; the rest is grouped as "other".
const maxPieSlices = 8

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. Mermaid charts through the same builder
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Report")
	md.PlainText("")

	longest := "-"
	if summary.LongestPage.URL != "" {
		longest = "`" + summary.LongestPage.URL + "` (" + strconv.Itoa(summary.LongestPage.TokenCount) + " words)"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Checkpoint", formatTime(summary.CreatedAt)},
			{"Pages Processed", strconv.FormatInt(summary.PagesProcessed, 10)},
			{"Unique Pages", strconv.Itoa(summary.UniquePages)},
			{"Longest Page", longest},
		},
	})
	md.PlainText("")

	w.writeSubdomains(md, summary)
	w.writeWords(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSubdomains writes the subdomain table and distribution chart.
func (w *MarkdownWriter) writeSubdomains(md *markdown.Markdown, summary *Summary) {
	md.H2("Subdomains")
	md.PlainText("")

	if summary.SubdomainTotal == 0 {
		md.PlainText("No subdomains discovered yet.")
		md.PlainText("")
		return
	}

	if summary.MonitoredDomain != "" {
		md.PlainTextf("%d subdomains of `%s`.", summary.SubdomainTotal, summary.MonitoredDomain)
		md.PlainText("")
	}

	rows := make([][]string, len(summary.Subdomains))
	for i, s := range summary.Subdomains {
		rows[i] = []string{s.Subdomain, strconv.Itoa(s.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Subdomain", "Unique Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	if hidden := summary.SubdomainTotal - len(summary.Subdomains); hidden > 0 {
		md.Note(strconv.Itoa(hidden) + " more subdomains not shown.")
		md.PlainText("")
	}

	w.writePieChart(md, summary.Subdomains)
}

// writePieChart writes a mermaid pie chart of the largest subdomains.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, subdomains []SubdomainCount) {
	sorted := slices.Clone(subdomains)
	slices.SortStableFunc(sorted, func(a, b SubdomainCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Unique Pages by Subdomain"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, s := range sorted {
		if s.Count <= 0 {
			continue
		}
		if i >= maxPieSlices {
			other += uint64(s.Count)
			continue
		}
		chart.LabelAndIntValue(s.Subdomain, uint64(s.Count))
	}
	if other > 0 {
		chart.LabelAndIntValue("other", other)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeWords writes the top words table.
func (w *MarkdownWriter) writeWords(md *markdown.Markdown, summary *Summary) {
	md.H2("Top Words")
	md.PlainText("")

	if len(summary.TopWords) == 0 {
		md.PlainText("No words recorded yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.TopWords))
	for i, word := range summary.TopWords {
		rows[i] = []string{strconv.Itoa(i + 1), word.Word, strconv.Itoa(word.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteComparison outputs the comparison in Markdown format.
func (w *MarkdownWriter) WriteComparison(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Checkpoint Comparison")
	md.PlainText("")

	longest := "unchanged"
	if c.LongestChanged {
		longest = "`" + c.OldLongest.URL + "` → `" + c.NewLongest.URL + "`"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Old", "New", "Change"},
		Rows: [][]string{
			{"Checkpoint", formatTime(c.OldCreatedAt), formatTime(c.NewCreatedAt), "-"},
			{"Unique Pages", strconv.Itoa(c.OldUnique), strconv.Itoa(c.NewUnique), signed(int64(c.UniqueDelta))},
			{"Pages Processed", "-", "-", signed(c.PagesDelta)},
			{"Longest Page", strconv.Itoa(c.OldLongest.TokenCount), strconv.Itoa(c.NewLongest.TokenCount), longest},
		},
	})
	md.PlainText("")

	if !c.HasChanges() {
		md.Tip("No changes between checkpoints.")
		md.PlainText("")
	}

	if len(c.NewSubdomains) > 0 {
		md.H2("New Subdomains")
		md.PlainText("")
		items := make([]string, len(c.NewSubdomains))
		for i, s := range c.NewSubdomains {
			items[i] = s.Subdomain + " (" + strconv.Itoa(s.Count) + ")"
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(c.Subdomains) > 0 {
		md.H2("Subdomain Changes")
		md.PlainText("")
		rows := make([][]string, len(c.Subdomains))
		for i, s := range c.Subdomains {
			rows[i] = []string{s.Subdomain, strconv.Itoa(s.Old), strconv.Itoa(s.New), signed(int64(s.Delta))}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Subdomain", "Old", "New", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(c.TopWords) > 0 {
		md.H2("Top Words")
		md.PlainText("")
		rows := make([][]string, len(c.TopWords))
		for i, word := range c.TopWords {
			oldRank := "-"
			if word.OldRank > 0 {
				oldRank = strconv.Itoa(word.OldRank)
			}
			rows[i] = []string{strconv.Itoa(word.NewRank), word.Word, strconv.Itoa(word.Count), oldRank, word.Direction}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Word", "Count", "Old Rank", "Movement"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [crawlcore](https://github.com/nao1215/crawlcore)*")
}

func signed(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
