package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/safarnama/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no rows are shown.
	showEmpty bool

	// verbose prints full summaries instead of truncated ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables full summaries.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
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

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCounts(&sb, report)
	w.writeSession(&sb, report.Session)
	w.writeSummaries(&sb, report)
	w.writeURLs(&sb, "DOWNLOADED", report.ByStatus(model.StatusDownloaded))
	w.writeURLs(&sb, "IGNORED", report.ByStatus(model.StatusIgnored))
	w.writeURLs(&sb, "PENDING", report.ByStatus(model.StatusToVisit))
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        SAFARNAMA CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if report.SeedURL != "" {
		fmt.Fprintf(sb, "Seed URL:     %s\n", report.SeedURL)
	}
	fmt.Fprintf(sb, "Generated:    %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Frontier:     %d urls\n", report.Total())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, report *model.CrawlReport) {
	w.writeSection(sb, "STATUS SUMMARY")
	for _, status := range model.AllStatuses {
		fmt.Fprintf(sb, "  %-11s %d\n", strings.ToUpper(status.String())+":", report.Counts[status])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSession(sb *strings.Builder, session *model.CrawlSession) {
	if session == nil {
		return
	}
	w.writeSection(sb, "LAST RUN")
	fmt.Fprintf(sb, "  Session:    %s\n", session.ID)
	fmt.Fprintf(sb, "  Duration:   %s\n", session.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "  Visited:    %d\n", session.Stats.Visited)
	fmt.Fprintf(sb, "  Ignored:    %d\n", session.Stats.Ignored)
	fmt.Fprintf(sb, "  Downloaded: %d\n", session.Stats.Downloaded)
	fmt.Fprintf(sb, "  Summarized: %d\n", session.Stats.Summarized)
	fmt.Fprintf(sb, "  Enqueued:   %d\n", session.Stats.Enqueued)
	if session.Stats.StorageErrors > 0 {
		fmt.Fprintf(sb, "  Storage errors: %d\n", session.Stats.StorageErrors)
	}
	if session.Error != "" {
		fmt.Fprintf(sb, "  Error:      %s\n", session.Error)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummaries(sb *strings.Builder, report *model.CrawlReport) {
	visited := report.ByStatus(model.StatusVisited)
	if len(visited) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "VISITED")
	if len(visited) == 0 {
		sb.WriteString("  No visited urls\n\n")
		return
	}
	for _, rec := range visited {
		fmt.Fprintf(sb, "  [+] %s (depth %d, %s)\n", rec.URL, rec.Depth, orDash(rec.ContentType))
		if rec.Summary != "" {
			summary := rec.Summary
			if !w.verbose {
				summary = truncateString(summary, 200)
			}
			fmt.Fprintf(sb, "      Summary: %s\n", summary)
		}
		if rec.Tags != "" {
			fmt.Fprintf(sb, "      Tags:    %s\n", rec.Tags)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeURLs(sb *strings.Builder, title string, records []model.URLRecord) {
	if len(records) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, title)
	if len(records) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, rec := range records {
		if rec.ContentType != "" {
			fmt.Fprintf(sb, "  * %s (%s)\n", rec.URL, rec.ContentType)
			continue
		}
		fmt.Fprintf(sb, "  * %s\n", rec.URL)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by safarnama\n")
	sb.WriteString("https://github.com/nao1215/safarnama\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
