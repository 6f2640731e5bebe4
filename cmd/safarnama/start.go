package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/safarnama/internal/crawler"
	"github.com/nao1215/safarnama/internal/model"
	"github.com/nao1215/safarnama/internal/pipeline"
	"github.com/nao1215/safarnama/internal/report"
	"github.com/nao1215/safarnama/internal/sanitize"
	"github.com/nao1215/safarnama/internal/summarize"
	"github.com/spf13/cobra"
)

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [url]",
		Short: "Crawl the configured site",
		Long: `Start crawls the site given by base_url, or by the url argument, and
summarizes every accepted HTML page.

The frontier is stored in the database. Interrupting a crawl with Ctrl-C
leaves unprocessed urls in place, and the next start resumes them. After
the crawl a sitemap of the visited pages is written when generate_sitemap is
enabled.

Examples:
  # Crawl base_url from safarnama.yaml
  safarnama start

  # Crawl another site without summaries and keep a Markdown report
  safarnama start https://example.com --no-summary -o report.md --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStartCmd,
	}

	cmd.Flags().Bool("no-summary", false, "Skip LLM summarization")
	cmd.Flags().StringP("output", "o", "", "Write a crawl report to this file")
	cmd.Flags().String("format", string(report.FormatText), "Report format: text, json or markdown")

	return cmd
}

func runStartCmd(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	if len(args) == 1 {
		a.cfg.SeedURL = args[0]
		if err := a.cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}

	noSummary, err := cmd.Flags().GetBool("no-summary")
	if err != nil {
		return err
	}
	reportFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	ctrl, err := a.controller(!noSummary)
	if err != nil {
		return err
	}
	session, err := ctrl.NewSession()
	if err != nil {
		return err
	}

	sitemapFile := ""
	if a.cfg.GenerateSitemap {
		sitemapFile = a.cfg.SitemapFile
	}
	p := pipeline.DefaultPipeline(ctrl, pipeline.RunOptions{
		SitemapFile:  sitemapFile,
		ReportFile:   reportFile,
		ReportFormat: format,
		ReportSource: a.db,
		Logger:       a.logger,
	})

	ctx, cancel := signalContext(cmd.Context(), a.logger)
	defer cancel()

	runErr := p.Execute(ctx, session)
	printSession(cmd.OutOrStdout(), session)
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Crawl interrupted. Run \"safarnama start\" again to resume.")
		return nil
	}
	return runErr
}

// controller wires the crawl controller from the configuration.
func (a *app) controller(withSummary bool) (*crawler.Controller, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}

	client, err := a.httpClient(a.cfg.FetchTimeout.Duration())
	if err != nil {
		return nil, err
	}
	downloadClient, err := a.streamingClient(a.cfg.FetchTimeout.Duration())
	if err != nil {
		return nil, err
	}
	fetcher := crawler.NewFetcher(client,
		crawler.WithDelay(a.cfg.Delay.Duration()),
		crawler.WithMaxBodySize(a.cfg.MaxBodySize),
		crawler.WithDownloadClient(downloadClient, a.cfg.FetchTimeout.Duration()))

	opts := []crawler.Option{
		crawler.WithLogger(a.logger),
		crawler.WithRobots(crawler.NewRobotsPolicy(client, a.cfg.UserAgent, a.logger)),
	}
	if withSummary {
		s, err := summarize.New(a.cfg.LLM,
			summarize.WithLogger(a.logger),
			summarize.WithUserAgent(a.cfg.UserAgent))
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			crawler.WithSummarizer(s),
			crawler.WithSanitizer(sanitize.New()))
	}

	return crawler.NewController(a.cfg, db, fetcher, opts...), nil
}

// printSession writes a short run summary.
func printSession(w io.Writer, s *model.CrawlSession) {
	fmt.Fprintf(w, "\nCrawl of %s finished in %s\n", s.SeedURL, s.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  visited:    %d\n", s.Stats.Visited)
	fmt.Fprintf(w, "  ignored:    %d\n", s.Stats.Ignored)
	fmt.Fprintf(w, "  downloaded: %d\n", s.Stats.Downloaded)
	fmt.Fprintf(w, "  summarized: %d\n", s.Stats.Summarized)
	if s.Stats.StorageErrors > 0 {
		fmt.Fprintf(w, "  storage errors: %d (see log)\n", s.Stats.StorageErrors)
	}
	if s.SitemapPath != "" {
		fmt.Fprintf(w, "Sitemap written to %s\n", s.SitemapPath)
	}
}
