// Package report turns crawl checkpoints into readable reports.
//
// Summarize reduces a checkpoint to counts, a sorted subdomain list and the
// top words after stop-word removal. Compare diffs two checkpoints.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown with tables and a mermaid chart for sharing
//   - JSONWriter: Structured JSON output for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
