package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/safarnama/internal/config"
	"github.com/nao1215/safarnama/internal/model"
	"github.com/nao1215/safarnama/internal/policy"
)

// octetStream is the media type whose URL extensions are learned as binary.
const octetStream = "application/octet-stream"

// Frontier is the persistent crawl queue. *database.CrawlDB implements it.
type Frontier interface {
	Enqueue(ctx context.Context, rawURL string, depth int, status model.Status) (bool, error)
	DequeueNext(ctx context.Context, maxDepth int) (*model.URLRecord, error)
	MarkStatus(ctx context.Context, rawURL string, status model.Status, contentType string) error
	RecordSummary(ctx context.Context, rawURL, summary, tags string) error
}

// PolicySource returns the effective settings of a URL at a depth.
type PolicySource interface {
	Effective(rawURL string, depth int) model.EffectiveSettings
}

// RobotsChecker decides whether a URL may be fetched.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// PageFetcher performs GET requests and file downloads.
type PageFetcher interface {
	Get(ctx context.Context, rawURL string) (*model.Page, error)
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// Sanitizer cleans HTML before summarization.
type Sanitizer interface {
	Clean(body string, exclude []*regexp.Regexp) (string, error)
}

// Summarizer produces a page summary. On failure it returns the empty
// summary along with the error.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (model.PageSummary, error)
}

// Controller drives one crawl over the frontier. It is strictly
// sequential: one URL is classified completely before the next is
// dequeued.
type Controller struct {
	cfg        *config.Config
	frontier   Frontier
	fetcher    PageFetcher
	policy     PolicySource
	robots     RobotsChecker
	sanitizer  Sanitizer
	summarizer Summarizer
	logger     *slog.Logger

	// accepted is the set of accepted media types.
	accepted map[string]struct{}

	// learned holds extensions served as application/octet-stream during
	// this run; later URLs with them are treated as binary.
	learned []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy replaces the policy built from the configuration.
func WithPolicy(p PolicySource) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithRobots enables the robots.txt check.
func WithRobots(r RobotsChecker) Option {
	return func(c *Controller) {
		c.robots = r
	}
}

// WithSanitizer sets the HTML sanitizer. Without one the raw body is
// summarized.
func WithSanitizer(s Sanitizer) Option {
	return func(c *Controller) {
		c.sanitizer = s
	}
}

// WithSummarizer sets the summarizer. Without one no summary is recorded.
func WithSummarizer(s Summarizer) Option {
	return func(c *Controller) {
		c.summarizer = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a Controller for a loaded configuration. The robots
// check is only performed when cfg.RespectRobots is set and a checker was
// given with WithRobots.
func NewController(cfg *config.Config, frontier Frontier, fetcher PageFetcher, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		frontier: frontier,
		fetcher:  fetcher,
		policy:   policy.NewMerger(cfg),
		logger:   slog.Default(),
		accepted: make(map[string]struct{}, len(cfg.AcceptedContentTypes)),
	}
	for _, ct := range cfg.AcceptedContentTypes {
		c.accepted[ct] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	if !cfg.RespectRobots {
		c.robots = nil
	}
	return c
}

// NewSession creates the session of a run over the configured seed.
func (c *Controller) NewSession() (*model.CrawlSession, error) {
	session, err := model.NewCrawlSession(c.cfg.SeedURL, c.cfg.MaxDepth, c.cfg.Delay.Duration())
	if err != nil {
		return nil, fmt.Errorf("invalid seed url: %w", err)
	}
	return session, nil
}

// Run creates a session and crawls with it. The session is returned
// whenever it could be created, even if the crawl failed.
func (c *Controller) Run(ctx context.Context) (*model.CrawlSession, error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, err
	}
	return session, c.Crawl(ctx, session)
}

// Crawl seeds the frontier with the session's seed URL at depth 0 and
// processes to_visit rows until none is left at or below the maximum depth.
//
// Rows left by an earlier interrupted run are processed as well. Storage
// write failures are logged and counted; only a failing dequeue or a
// cancelled context ends the run early.
func (c *Controller) Crawl(ctx context.Context, session *model.CrawlSession) error {
	logger := c.logger.With("session", session.ID.String())
	logger.Info("crawl started", "seed", session.SeedURL, "max_depth", session.MaxDepth)

	if _, err := c.frontier.Enqueue(ctx, session.SeedURL, 0, model.StatusToVisit); err != nil {
		session.Stats.StorageErrors++
		logger.Error("failed to seed frontier", "url", session.SeedURL, "error", err)
	}

	processed := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			session.Finish()
			logger.Info("crawl interrupted", "processed", session.Stats.Processed())
			return err
		}

		record, err := c.frontier.DequeueNext(ctx, c.cfg.MaxDepth)
		if err != nil {
			session.Finish()
			return fmt.Errorf("failed to dequeue: %w", err)
		}
		if record == nil {
			break
		}
		if _, ok := processed[record.URL]; ok {
			session.Finish()
			return fmt.Errorf("%w: %s", ErrFrontierStalled, record.URL)
		}
		processed[record.URL] = struct{}{}

		c.process(ctx, logger, session, record)
	}

	session.Finish()
	logger.Info("crawl finished",
		"visited", session.Stats.Visited,
		"ignored", session.Stats.Ignored,
		"downloaded", session.Stats.Downloaded,
		"duration", session.Duration())
	return nil
}

// process moves one to_visit row to its terminal status.
func (c *Controller) process(ctx context.Context, logger *slog.Logger, session *model.CrawlSession, record *model.URLRecord) {
	rawURL := record.URL
	settings := c.policy.Effective(rawURL, record.Depth)

	if pattern, ok := settings.MatchExcludedURL(rawURL); ok {
		logger.Info("excluding url", "url", rawURL, "pattern", pattern)
		c.mark(ctx, logger, session, rawURL, model.StatusIgnored, "")
		return
	}

	if c.isBinary(rawURL) {
		c.handleBinary(ctx, logger, session, rawURL, settings)
		return
	}

	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		logger.Info("skipping url disallowed by robots.txt", "url", rawURL)
		c.mark(ctx, logger, session, rawURL, model.StatusIgnored, "")
		return
	}

	logger.Info("processing url", "url", rawURL, "depth", record.Depth)
	page, err := c.fetcher.Get(ctx, rawURL)
	if err != nil {
		logger.Warn("fetch failed", "url", rawURL, "error", err)
		c.mark(ctx, logger, session, rawURL, model.StatusIgnored, "")
		return
	}

	mediaType := page.MediaType()
	if _, ok := c.accepted[mediaType]; !ok {
		logger.Info("ignoring unsupported content type", "url", rawURL, "content_type", mediaType)
		c.mark(ctx, logger, session, rawURL, model.StatusIgnored, mediaType)
		if mediaType == octetStream {
			c.learnExtension(logger, rawURL)
		}
		return
	}

	c.mark(ctx, logger, session, rawURL, model.StatusVisited, mediaType)
	session.MarkVisited(rawURL)

	if !page.IsHTML() {
		return
	}

	c.summarize(ctx, logger, session, page, settings)

	if !settings.FindImages && !c.cfg.RecursiveCrawl {
		return
	}
	parser, err := NewParser(rawURL)
	if err != nil {
		return
	}
	result, err := parser.Parse(bytes.NewReader(page.Body))
	if err != nil {
		logger.Warn("failed to parse html", "url", rawURL, "error", err)
		return
	}

	if settings.FindImages {
		for _, img := range result.Images {
			logger.Info("found image", "url", img, "page", rawURL)
			if !settings.DownloadBinaries {
				continue
			}
			if dest, err := c.fetcher.Download(ctx, img, c.cfg.ImageDir); err != nil {
				logger.Warn("image download failed", "url", img, "error", err)
			} else {
				logger.Info("downloaded image", "url", img, "path", dest)
			}
		}
	}

	if c.cfg.RecursiveCrawl {
		for _, link := range result.Links {
			if !session.InScope(link) {
				continue
			}
			inserted, err := c.frontier.Enqueue(ctx, link, record.Depth+1, model.StatusToVisit)
			if err != nil {
				session.Stats.StorageErrors++
				logger.Error("failed to enqueue", "url", link, "error", err)
				continue
			}
			if inserted {
				session.Stats.Enqueued++
				logger.Debug("enqueued", "url", link, "depth", record.Depth+1)
			}
		}
	}
}

// handleBinary downloads or skips a binary URL without fetching it as a
// page.
func (c *Controller) handleBinary(ctx context.Context, logger *slog.Logger, session *model.CrawlSession, rawURL string, settings model.EffectiveSettings) {
	if !settings.AllowsDownload(rawURL) {
		logger.Info("skipping binary url", "url", rawURL)
		c.mark(ctx, logger, session, rawURL, model.StatusIgnored, model.ContentTypeBinary)
		return
	}

	dest, err := c.fetcher.Download(ctx, rawURL, c.cfg.DownloadDir)
	if err != nil {
		logger.Warn("binary download failed", "url", rawURL, "error", err)
		c.mark(ctx, logger, session, rawURL, model.StatusIgnored, model.ContentTypeBinary)
		return
	}
	logger.Info("downloaded file", "url", rawURL, "path", dest)
	c.mark(ctx, logger, session, rawURL, model.StatusDownloaded, model.ContentTypeBinary)
}

// summarize sanitizes the page, asks the summarizer and records the
// result. A failed summarization records the empty result.
func (c *Controller) summarize(ctx context.Context, logger *slog.Logger, session *model.CrawlSession, page *model.Page, settings model.EffectiveSettings) {
	if c.summarizer == nil {
		return
	}

	text := string(page.Body)
	if c.sanitizer != nil {
		cleaned, err := c.sanitizer.Clean(text, settings.ExcludeContentPatterns)
		if err != nil {
			logger.Warn("failed to sanitize html", "url", page.URL, "error", err)
		} else {
			text = cleaned
		}
	}

	summary, err := c.summarizer.Summarize(ctx, text)
	if err != nil {
		logger.Warn("summarization failed", "url", page.URL, "error", err)
	}
	logger.Info("summary", "url", page.URL, "summary", summary.Summary, "tags", summary.TagNames())

	if err := c.frontier.RecordSummary(ctx, page.URL, summary.Summary, summary.JoinedTags()); err != nil {
		session.Stats.StorageErrors++
		logger.Error("failed to record summary", "url", page.URL, "error", err)
		return
	}
	if !summary.IsEmpty() {
		session.Stats.Summarized++
	}
}

// mark stores a terminal status and updates the session counters.
func (c *Controller) mark(ctx context.Context, logger *slog.Logger, session *model.CrawlSession, rawURL string, status model.Status, contentType string) {
	switch status {
	case model.StatusIgnored:
		session.Stats.Ignored++
	case model.StatusDownloaded:
		session.Stats.Downloaded++
	}

	if err := c.frontier.MarkStatus(ctx, rawURL, status, contentType); err != nil {
		session.Stats.StorageErrors++
		logger.Error("failed to mark url", "url", rawURL, "status", status, "error", err)
	}
}

// isBinary checks the configured and the learned extensions.
func (c *Controller) isBinary(rawURL string) bool {
	if c.cfg.IsBinaryURL(rawURL) {
		return true
	}
	lower := strings.ToLower(rawURL)
	for _, ext := range c.learned {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// learnExtension remembers the extension of a URL served as
// application/octet-stream.
func (c *Controller) learnExtension(logger *slog.Logger, rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || c.isBinary("x"+ext) {
		return
	}
	c.learned = append(c.learned, ext)
	logger.Info("learned binary extension", "extension", ext, "url", rawURL)
}
