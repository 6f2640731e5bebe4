package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/safarnama/internal/model"
	"github.com/nao1215/safarnama/internal/report"
	"github.com/nao1215/safarnama/internal/sitemap"
)

// Crawler runs a crawl into an existing session. *crawler.Controller
// implements it.
type Crawler interface {
	Crawl(ctx context.Context, session *model.CrawlSession) error
}

// CrawlStep processes the frontier.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(c Crawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl.
func (s *CrawlStep) Do(ctx context.Context, session *model.CrawlSession) error {
	return s.crawler.Crawl(ctx, session)
}

// SitemapStep writes the URLs visited in this run as an XML sitemap.
type SitemapStep struct {
	// path is the sitemap file.
	path string

	logger *slog.Logger
}

// SitemapStepOption configures a SitemapStep.
type SitemapStepOption func(*SitemapStep)

// WithSitemapLogger sets a custom logger for the sitemap step.
func WithSitemapLogger(logger *slog.Logger) SitemapStepOption {
	return func(s *SitemapStep) {
		s.logger = logger
	}
}

// NewSitemapStep creates a SitemapStep writing to path.
func NewSitemapStep(path string, opts ...SitemapStepOption) *SitemapStep {
	s := &SitemapStep{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SitemapStep) Name() string {
	return "sitemap"
}

// Do writes the sitemap and records its path in the session.
func (s *SitemapStep) Do(_ context.Context, session *model.CrawlSession) error {
	if err := sitemap.WriteFile(s.path, session.Visited); err != nil {
		return err
	}
	session.SitemapPath = s.path
	s.logger.Info("sitemap generated", "path", s.path, "urls", len(session.Visited))
	return nil
}

// ReportStep writes a frontier report, including the run's statistics,
// to a file.
type ReportStep struct {
	source report.Source
	path   string
	format report.Format
	logger *slog.Logger
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportFormat sets the output format. The default is text.
func WithReportFormat(format report.Format) ReportStepOption {
	return func(s *ReportStep) {
		s.format = format
	}
}

// WithReportLogger sets a custom logger for the report step.
func WithReportLogger(logger *slog.Logger) ReportStepOption {
	return func(s *ReportStep) {
		s.logger = logger
	}
}

// NewReportStep creates a ReportStep reading from source and writing to
// path.
func NewReportStep(source report.Source, path string, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		source: source,
		path:   path,
		format: report.FormatText,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do builds the report and writes it with owner-only permissions.
func (s *ReportStep) Do(ctx context.Context, session *model.CrawlSession) (err error) {
	crawlReport, err := report.Build(ctx, s.source, session.SeedURL)
	if err != nil {
		return err
	}
	crawlReport.Session = session

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w, err := report.NewWriter(s.format, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(crawlReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	s.logger.Info("report written", "path", s.path, "format", s.format)
	return nil
}

// RunOptions selects the optional steps of DefaultPipeline.
type RunOptions struct {
	// SitemapFile enables the sitemap step when non-empty.
	SitemapFile string

	// ReportFile enables the report step when non-empty.
	ReportFile   string
	ReportFormat report.Format

	// ReportSource is read by the report step.
	ReportSource report.Source

	Logger *slog.Logger
}

// DefaultPipeline builds the standard run: crawl, then sitemap and report
// when enabled. Output steps still run after a failed crawl.
func DefaultPipeline(c Crawler, opts RunOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger), WithContinueOnError(true))
	p.AddStep(NewCrawlStep(c))
	if opts.SitemapFile != "" {
		p.AddStep(NewSitemapStep(opts.SitemapFile, WithSitemapLogger(logger)))
	}
	if opts.ReportFile != "" && opts.ReportSource != nil {
		format := opts.ReportFormat
		if format == "" {
			format = report.FormatText
		}
		p.AddStep(NewReportStep(opts.ReportSource, opts.ReportFile,
			WithReportFormat(format),
			WithReportLogger(logger)))
	}
	return p
}
