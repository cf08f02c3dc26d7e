package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
//  3. The report is read alongside a running crawl's logs
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *Summary) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "CRAWL REPORT")

	fmt.Fprintf(&sb, "Checkpoint:           %s\n", formatTime(summary.CreatedAt))
	fmt.Fprintf(&sb, "Pages processed:      %d\n", summary.PagesProcessed)
	fmt.Fprintf(&sb, "Unique pages so far:  %d\n", summary.UniquePages)
	if summary.LongestPage.URL != "" {
		fmt.Fprintf(&sb, "Longest page so far:  %s (%d words)\n",
			summary.LongestPage.URL, summary.LongestPage.TokenCount)
	} else {
		sb.WriteString("Longest page so far:  -\n")
	}
	sb.WriteString("\n")

	w.writeSubdomains(&sb, summary)
	w.writeWords(&sb, summary)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeSubdomains writes the subdomain section.
func (w *SimpleWriter) writeSubdomains(sb *strings.Builder, summary *Summary) {
	if summary.SubdomainTotal == 0 && !w.showEmpty {
		return
	}

	label := "subdomains"
	if summary.MonitoredDomain != "" {
		label = summary.MonitoredDomain + " subdomains"
	}
	writeSection(sb, strings.ToUpper(label))
	fmt.Fprintf(sb, "Number of %s: %d\n", label, summary.SubdomainTotal)
	for _, s := range summary.Subdomains {
		fmt.Fprintf(sb, "  %s, %d\n", s.Subdomain, s.Count)
	}
	if hidden := summary.SubdomainTotal - len(summary.Subdomains); hidden > 0 {
		fmt.Fprintf(sb, "  ... and %d more\n", hidden)
	}
	sb.WriteString("\n")
}

// writeWords writes the top words section.
func (w *SimpleWriter) writeWords(sb *strings.Builder, summary *Summary) {
	if len(summary.TopWords) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, fmt.Sprintf("TOP %d WORDS", len(summary.TopWords)))
	for i, word := range summary.TopWords {
		fmt.Fprintf(sb, "  %3d. %-24s %d\n", i+1, word.Word, word.Count)
	}
	sb.WriteString("\n")
}

// WriteComparison outputs the comparison in human-readable format.
func (w *SimpleWriter) WriteComparison(c *Comparison) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "CHECKPOINT COMPARISON")

	fmt.Fprintf(&sb, "Old checkpoint:  %s\n", formatTime(c.OldCreatedAt))
	fmt.Fprintf(&sb, "New checkpoint:  %s\n", formatTime(c.NewCreatedAt))
	fmt.Fprintf(&sb, "Pages processed: %+d\n", c.PagesDelta)
	fmt.Fprintf(&sb, "Unique pages:    %d -> %d (%+d)\n", c.OldUnique, c.NewUnique, c.UniqueDelta)
	if c.LongestChanged {
		fmt.Fprintf(&sb, "Longest page:    %s (%d words) -> %s (%d words)\n",
			c.OldLongest.URL, c.OldLongest.TokenCount, c.NewLongest.URL, c.NewLongest.TokenCount)
	} else {
		sb.WriteString("Longest page:    unchanged\n")
	}
	sb.WriteString("\n")

	if !c.HasChanges() {
		sb.WriteString("No changes between checkpoints.\n\n")
	}

	if len(c.NewSubdomains) > 0 || w.showEmpty {
		writeSection(&sb, "NEW SUBDOMAINS")
		for _, s := range c.NewSubdomains {
			fmt.Fprintf(&sb, "  [+] %s, %d\n", s.Subdomain, s.Count)
		}
		sb.WriteString("\n")
	}

	if len(c.Subdomains) > 0 || w.showEmpty {
		writeSection(&sb, "SUBDOMAIN CHANGES")
		for _, s := range c.Subdomains {
			fmt.Fprintf(&sb, "  %s: %d -> %d (%+d)\n", s.Subdomain, s.Old, s.New, s.Delta)
		}
		sb.WriteString("\n")
	}

	if len(c.TopWords) > 0 || w.showEmpty {
		writeSection(&sb, "TOP WORDS")
		for _, word := range c.TopWords {
			fmt.Fprintf(&sb, "  %3d. %-24s %-8d %s\n", word.NewRank, word.Word, word.Count, rankLabel(word))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// rankLabel describes a rank change for text output.
func rankLabel(w WordRank) string {
	switch w.Direction {
	case directionNew:
		return "(new)"
	case directionUp, directionDown:
		return fmt.Sprintf("(was %d)", w.OldRank)
	default:
		return ""
	}
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := max(0, (70-len(title))/2)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
