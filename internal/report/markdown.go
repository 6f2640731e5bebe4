package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/safarnama/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation
// and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCounts(md, report)
	w.writeSummaries(md, report)
	w.writeOthers(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Safarnama Crawl Report")
	md.PlainText("")

	rows := make([][]string, 0, 8)
	if report.SeedURL != "" {
		rows = append(rows, []string{"Seed URL", "`" + report.SeedURL + "`"})
	}
	rows = append(rows,
		[]string{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Frontier Size", strconv.Itoa(report.Total())},
	)
	if s := report.Session; s != nil {
		rows = append(rows,
			[]string{"Session", "`" + s.ID.String() + "`"},
			[]string{"Duration", s.Duration().Round(time.Millisecond).String()},
			[]string{"Summarized", strconv.Itoa(s.Stats.Summarized)},
		)
		if s.Error != "" {
			rows = append(rows, []string{"Error", s.Error})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Status Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.AllStatuses)+1)
	for _, status := range model.AllStatuses {
		rows = append(rows, []string{status.String(), strconv.Itoa(report.Counts[status])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(report.Total()) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Total() > 0 {
		w.writePieChart(md, report)
	}

	if pending := report.Counts[model.StatusToVisit]; pending > 0 {
		md.Note(fmt.Sprintf("%d url(s) are still waiting in the frontier. Run `safarnama start` again to resume.", pending))
	} else {
		md.Tip("The frontier is fully processed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Frontier Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, status := range model.AllStatuses {
		if n := report.Counts[status]; n > 0 {
			chart.LabelAndIntValue(status.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummaries(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Visited Pages")
	md.PlainText("")

	visited := report.ByStatus(model.StatusVisited)
	if len(visited) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(visited))
	for i, rec := range visited {
		rows[i] = []string{
			rec.URL,
			strconv.Itoa(rec.Depth),
			orDash(rec.ContentType),
			orDash(truncateString(oneLine(rec.Summary), 80)),
			orDash(rec.Tags),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Content Type", "Summary", "Tags"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, rec := range report.Summarized() {
		md.Details(rec.URL, rec.Summary)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeOthers(md *markdown.Markdown, report *model.CrawlReport) {
	sections := []struct {
		status model.Status
		title  string
	}{
		{model.StatusDownloaded, "Downloaded Files"},
		{model.StatusIgnored, "Ignored URLs"},
	}
	for _, sec := range sections {
		records := report.ByStatus(sec.status)
		if len(records) == 0 {
			continue
		}
		md.H2(sec.title)
		md.PlainText("")
		items := make([]string, len(records))
		for i, rec := range records {
			items[i] = rec.URL
			if rec.ContentType != "" {
				items[i] += " (" + rec.ContentType + ")"
			}
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [safarnama](https://github.com/nao1215/safarnama)*")
}

// oneLine collapses whitespace so a summary fits in a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
