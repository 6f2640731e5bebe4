package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/safarnama/internal/model"
)

const (
	// DefaultProbeQuery is the search term of the health probe.
	DefaultProbeQuery = "test"

	// DefaultTimeout bounds each probe and each query.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRounds is the number of extra passes after the first.
	DefaultMaxRounds = 1

	// maxResponseSize limits the body read from an instance.
	maxResponseSize = 10 * 1024 * 1024
)

// Result is a successful query answer.
type Result struct {
	// InstanceURL is the instance that answered, as requested (without a
	// trailing slash).
	InstanceURL string `json:"instance_url"`

	// Body is the raw JSON answer.
	Body json.RawMessage `json:"body"`
}

// Selector picks a healthy instance and runs a query on it.
type Selector struct {
	registry   *Registry
	client     *http.Client
	logger     *slog.Logger
	maxRounds  int
	timeout    time.Duration
	probeQuery string
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithMaxRounds sets the number of passes after the first. 0 means a
// single pass over the available instances.
func WithMaxRounds(n int) SelectorOption {
	return func(s *Selector) {
		if n >= 0 {
			s.maxRounds = n
		}
	}
}

// WithTimeout bounds every probe and query.
func WithTimeout(d time.Duration) SelectorOption {
	return func(s *Selector) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProbeQuery sets the search term used by the health probe.
func WithProbeQuery(q string) SelectorOption {
	return func(s *Selector) {
		if q != "" {
			s.probeQuery = q
		}
	}
}

// NewSelector creates a Selector. client should come from the transport
// package so the User-Agent and proxy settings apply.
func NewSelector(registry *Registry, client *http.Client, opts ...SelectorOption) *Selector {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Selector{
		registry:   registry,
		client:     client,
		logger:     slog.Default(),
		maxRounds:  DefaultMaxRounds,
		timeout:    DefaultTimeout,
		probeQuery: DefaultProbeQuery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectAndQuery runs query on the first healthy instance, in priority
// order, trying up to maxRounds+1 passes. Priorities are refreshed and the
// available list is reloaded at the start of every pass.
//
// Only ErrNoResult or a context error is returned; every instance failure
// is absorbed into its cooldown.
func (s *Selector) SelectAndQuery(ctx context.Context, query string) (*Result, error) {
	for round := 0; round <= s.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.registry.RefreshPriorities(ctx); err != nil {
			s.logger.Warn("failed to refresh backend priorities", "error", err)
		}
		instances, err := s.registry.ListAvailable(ctx)
		if err != nil {
			s.logger.Warn("failed to list available backends", "error", err)
			continue
		}

		for i := range instances {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if result := s.try(ctx, &instances[i], query); result != nil {
				return result, nil
			}
		}
		s.logger.Info("no healthy backend found this round", "round", round, "candidates", len(instances))
	}
	return nil, ErrNoResult
}

// try probes one instance and, if healthy, runs the query on it.
func (s *Selector) try(ctx context.Context, inst *model.BackendInstance, query string) *Result {
	endpoint := strings.TrimRight(inst.URL, "/")
	s.logger.Info("trying backend", "instance", endpoint, "priority", inst.Priority)

	if _, err := s.get(ctx, endpoint, s.probeQuery, true); err != nil {
		penalty := FailureCooldown
		if errors.Is(err, ErrRateLimited) {
			penalty = RateLimitCooldown
		}
		s.logger.Info("backend not healthy", "instance", endpoint, "cooldown", penalty, "error", err)
		s.cooldown(ctx, inst.URL, penalty)
		return nil
	}
	if err := s.registry.ClearCooldown(ctx, inst.URL); err != nil {
		s.logger.Warn("failed to clear backend cooldown", "instance", inst.URL, "error", err)
	}

	body, err := s.get(ctx, endpoint, query, false)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.logger.Info("backend rate limited", "instance", endpoint)
			s.cooldown(ctx, inst.URL, RateLimitCooldown)
			return nil
		}
		s.logger.Error("backend query failed", "instance", endpoint, "error", err)
		return nil
	}

	s.logger.Info("backend answered", "instance", endpoint)
	return &Result{InstanceURL: endpoint, Body: body}
}

func (s *Selector) cooldown(ctx context.Context, rawURL string, d time.Duration) {
	if err := s.registry.SetCooldown(ctx, rawURL, d); err != nil {
		s.logger.Warn("failed to set backend cooldown", "instance", rawURL, "error", err)
	}
}

// get issues GET endpoint?q=term&format=json. A probe additionally
// requires the body to be a JSON object.
func (s *Selector) get(ctx context.Context, endpoint, term string, probe bool) (json.RawMessage, error) {
	target, err := searchURL(endpoint, term)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if probe {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if obj == nil {
			return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedResponse)
		}
		return body, nil
	}
	if !json.Valid(body) {
		return nil, ErrMalformedResponse
	}
	return body, nil
}

// searchURL adds q and format=json to endpoint, keeping any existing
// query parameters.
func searchURL(endpoint, term string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid instance url %q: %w", endpoint, err)
	}
	values := u.Query()
	values.Set("q", term)
	values.Set("format", "json")
	u.RawQuery = values.Encode()
	return u.String(), nil
}
