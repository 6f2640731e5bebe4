package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nao1215/safarnama/internal/config"
	"github.com/nao1215/safarnama/internal/model"
	"github.com/nao1215/safarnama/internal/transport"
)

const (
	// DefaultAttempts is the total number of tries of a timed-out request.
	DefaultAttempts = 3

	// DefaultRetryPause is the wait between timed-out attempts.
	DefaultRetryPause = 2 * time.Second

	// chatCompletionsPath is appended to the base URL by the client.
	chatCompletionsPath = "/chat/completions"

	// checkPrompt is the user message sent by Check.
	checkPrompt = "Reply with the single word OK."
)

// Summarizer produces page summaries through a chat completion endpoint.
type Summarizer struct {
	client         *openai.Client
	model          string
	systemPrompt   string
	promptTemplate string
	maxTokens      int
	temperature    float32
	attempts       int
	pause          time.Duration
	logger         *slog.Logger

	// timeout bounds one whole attempt, including the body read.
	timeout time.Duration
}

// Option configures a Summarizer.
type Option func(*options)

type options struct {
	httpClient *http.Client
	attempts   int
	pause      time.Duration
	logger     *slog.Logger
	userAgent  string
	proxy      string
}

// WithHTTPClient replaces the HTTP client built from the LLM timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithRetry sets the total attempts and the pause between timed-out
// attempts.
func WithRetry(attempts int, pause time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if pause >= 0 {
			o.pause = pause
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent of LLM requests.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithProxy routes LLM requests through a proxy URL.
func WithProxy(rawURL string) Option {
	return func(o *options) {
		o.proxy = rawURL
	}
}

// New creates a Summarizer for cfg.
//
// cfg.Endpoint is the full chat completions URL; its trailing
// "/chat/completions" is removed to form the client base URL. cfg.Timeout
// bounds the dial, TLS handshake, response header and idle phases
// separately, and each attempt as a whole so a stalled body cannot block.
func New(cfg config.LLMConfig, opts ...Option) (*Summarizer, error) {
	o := &options{
		attempts: DefaultAttempts,
		pause:    DefaultRetryPause,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.httpClient == nil {
		timeout := cfg.Timeout.Duration()
		tc, err := transport.NewClient(
			transport.WithTimeout(0),
			transport.WithPhaseTimeouts(transport.Timeouts{
				Dial:           timeout,
				TLSHandshake:   timeout,
				ResponseHeader: timeout,
				IdleConn:       timeout,
			}),
			transport.WithUserAgent(o.userAgent),
			transport.WithProxy(o.proxy),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm transport: %w", err)
		}
		o.httpClient = tc.NewHTTPClient()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = BaseURL(cfg.Endpoint)
	clientCfg.HTTPClient = o.httpClient

	return &Summarizer{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		systemPrompt:   cfg.SystemPrompt,
		promptTemplate: cfg.PromptTemplate,
		maxTokens:      cfg.MaxTokens,
		temperature:    float32(cfg.Temperature),
		attempts:       o.attempts,
		pause:          o.pause,
		logger:         o.logger,
		timeout:        cfg.Timeout.Duration(),
	}, nil
}

// BaseURL converts a chat completions endpoint into a client base URL.
func BaseURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(endpoint, chatCompletionsPath)
}

// Summarize returns the summary and tags of text. On any failure the zero
// PageSummary is returned together with the error, so callers can store
// the empty result and move on.
func (s *Summarizer) Summarize(ctx context.Context, text string) (model.PageSummary, error) {
	content, err := s.complete(ctx, s.promptTemplate+"\n\n"+text)
	if err != nil {
		return model.PageSummary{}, err
	}

	summary, err := ParseContent(content)
	if err != nil {
		return model.PageSummary{}, err
	}
	return summary, nil
}

// Check sends a trivial prompt and returns the raw answer. It is used to
// verify the endpoint, model and key before a crawl.
func (s *Summarizer) Check(ctx context.Context) (string, error) {
	return s.complete(ctx, checkPrompt)
}

// complete runs one chat completion, retrying only on timeouts.
func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		s.logger.Debug("sending llm request", "model", s.model, "attempt", attempt)

		resp, err := s.attempt(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", ErrNoChoices
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isTimeout(err) {
			s.logger.Error("llm request failed", "attempt", attempt, "error", err)
			return "", fmt.Errorf("llm request failed: %w", err)
		}

		s.logger.Warn("llm request timed out", "attempt", attempt, "error", err)
		if attempt < s.attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.pause):
			}
		}
	}
	return "", fmt.Errorf("llm request timed out after %d attempts: %w", s.attempts, lastErr)
}

// attempt runs one request under the per-attempt timeout.
func (s *Summarizer) attempt(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.client.CreateChatCompletion(ctx, req)
}

// isTimeout reports whether err is a network or deadline timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ParseContent decodes a completion content, stripping a ```json fence.
func ParseContent(content string) (model.PageSummary, error) {
	content = strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(content, "```json"); ok {
		content = strings.TrimSpace(rest)
	} else if rest, ok := strings.CutPrefix(content, "```"); ok {
		content = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(content, "```"); ok {
		content = strings.TrimSpace(rest)
	}

	var summary model.PageSummary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return model.PageSummary{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	return summary, nil
}
