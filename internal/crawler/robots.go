package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize limits the robots.txt body read per host.
const maxRobotsSize = 512 * 1024

// RobotsPolicy answers robots.txt questions, fetching each host's file
// once per run.
//
// A robots.txt that cannot be read, or that answers with a 5xx status,
// allows everything. A 4xx status also allows everything.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	// cache maps "scheme://host" to its parsed rules.
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsPolicy creates a RobotsPolicy. userAgent selects the robots.txt
// group; an empty value uses the "*" group.
func NewRobotsPolicy(client *http.Client, userAgent string, logger *slog.Logger) *RobotsPolicy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	if userAgent == "" {
		userAgent = "*"
	}
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	key := u.Scheme + "://" + u.Host
	data, ok := r.cache[key]
	if !ok {
		data = r.fetch(ctx, key+"/robots.txt")
		r.cache[key] = data
	}
	if data == nil {
		return true
	}
	return data.TestAgent(u.RequestURI(), r.userAgent)
}

// fetch downloads and parses one robots.txt. nil means allow all.
func (r *RobotsPolicy) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("failed to read robots.txt", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		r.logger.Warn("robots.txt unavailable", "url", robotsURL, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		r.logger.Warn("failed to read robots.txt", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		r.logger.Warn("failed to parse robots.txt", "url", robotsURL, "error", err)
		return nil
	}
	return data
}
