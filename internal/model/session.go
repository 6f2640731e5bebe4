package model

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// CrawlStats counts the terminal classifications made during one run.
type CrawlStats struct {
	Visited    int `json:"visited"`
	Ignored    int `json:"ignored"`
	Downloaded int `json:"downloaded"`
	Summarized int `json:"summarized"`
	Enqueued   int `json:"enqueued"`

	// StorageErrors counts frontier writes that failed and were skipped.
	StorageErrors int `json:"storage_errors"`
}

// Processed returns the number of URLs that reached a terminal status.
func (s CrawlStats) Processed() int {
	return s.Visited + s.Ignored + s.Downloaded
}

// CrawlSession is the in-memory state of one crawl run. It is not persisted;
// the frontier holds everything needed to resume.
type CrawlSession struct {
	// ID correlates the log lines of one run.
	ID uuid.UUID `json:"id"`

	// SeedURL is the URL the run started from.
	SeedURL string `json:"seed_url"`

	// Scope is the seed's network location (host[:port]). Only links with
	// exactly this host are followed.
	Scope string `json:"scope"`

	// MaxDepth is the deepest frontier level that is dequeued.
	MaxDepth int `json:"max_depth"`

	// Delay is the pause between successive page requests.
	Delay time.Duration `json:"delay"`

	// Visited holds the URLs marked visited in this run, in visit order.
	Visited []string `json:"visited"`

	Stats CrawlStats `json:"stats"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// SitemapPath is set once the sitemap has been written.
	SitemapPath string `json:"sitemap_path,omitempty"`

	// Error is the message of the step that failed, if any.
	Error string `json:"error,omitempty"`

	visitedSet map[string]struct{}
}

// NewCrawlSession creates a session for seedURL.
func NewCrawlSession(seedURL string, maxDepth int, delay time.Duration) (*CrawlSession, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, err
	}
	return &CrawlSession{
		ID:         uuid.New(),
		SeedURL:    seedURL,
		Scope:      u.Host,
		MaxDepth:   maxDepth,
		Delay:      delay,
		Visited:    make([]string, 0),
		StartedAt:  time.Now(),
		visitedSet: make(map[string]struct{}),
	}, nil
}

// MarkVisited adds rawURL to the visited set. Duplicates are ignored.
func (s *CrawlSession) MarkVisited(rawURL string) {
	if s.visitedSet == nil {
		s.visitedSet = make(map[string]struct{})
	}
	if _, ok := s.visitedSet[rawURL]; ok {
		return
	}
	s.visitedSet[rawURL] = struct{}{}
	s.Visited = append(s.Visited, rawURL)
	s.Stats.Visited++
}

// HasVisited reports whether rawURL was visited in this run.
func (s *CrawlSession) HasVisited(rawURL string) bool {
	_, ok := s.visitedSet[rawURL]
	return ok
}

// InScope reports whether rawURL has exactly the seed's network location.
// No scheme, case or subdomain normalization is applied.
func (s *CrawlSession) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Host == s.Scope
}

// Finish records the end time.
func (s *CrawlSession) Finish() {
	s.FinishedAt = time.Now()
}

// Duration returns how long the run took, or has taken so far.
func (s *CrawlSession) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
