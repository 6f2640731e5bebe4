// Package report renders a snapshot of the crawl frontier.
//
// Writers for three formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured JSON for other tools
//   - MarkdownWriter: Markdown with a status chart, for sharing
//
// Build assembles a model.CrawlReport from the frontier; NewWriter picks
// a writer from a format name given on the command line.
package report
