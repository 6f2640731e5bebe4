package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/safarnama/internal/config"
)

// completion renders a chat completion answer with the given content.
func completion(content string) string {
	body, _ := json.Marshal(map[string]any{ //nolint:errchkjson // static shape
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
	return string(body)
}

func testConfig(endpoint string) config.LLMConfig {
	cfg := config.NewConfig().LLM
	cfg.Endpoint = endpoint
	cfg.Model = "test-model"
	cfg.APIKey = "sk-test-key"
	return cfg
}

func TestParseContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		wantSummary string
		wantTags    []string
		wantErr     bool
	}{
		{
			name:        "fenced json",
			content:     "```json\n{\"summary\":\"S\",\"tags\":[\"t1\"]}\n```",
			wantSummary: "S",
			wantTags:    []string{"t1"},
		},
		{
			name:        "bare json",
			content:     `{"summary":"Old town","tags":["travel","uzbekistan"]}`,
			wantSummary: "Old town",
			wantTags:    []string{"travel", "uzbekistan"},
		},
		{
			name:        "object tags with slashes",
			content:     `{"summary":"x","tags":[{"name":"ci/cd"},"a/b/c"]}`,
			wantSummary: "x",
			wantTags:    []string{"cicd", "abc"},
		},
		{
			name:        "plain fence",
			content:     "```\n{\"summary\":\"S\",\"tags\":[]}\n```",
			wantSummary: "S",
			wantTags:    []string{},
		},
		{name: "prose", content: "Here is your summary!", wantErr: true},
		{name: "array", content: `["t1"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseContent(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedContent) {
					t.Errorf("ParseContent() error = %v, want ErrMalformedContent", err)
				}
				if !got.IsEmpty() {
					t.Errorf("ParseContent() = %+v, want empty result", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseContent() error = %v", err)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if !reflect.DeepEqual(got.TagNames(), tt.wantTags) {
				t.Errorf("TagNames() = %v, want %v", got.TagNames(), tt.wantTags)
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		want     string
	}{
		{"http://localhost:1234/v1/chat/completions", "http://localhost:1234/v1"},
		{"http://localhost:1234/v1/chat/completions/", "http://localhost:1234/v1"},
		{"https://api.example.com/v1", "https://api.example.com/v1"},
	}
	for _, tt := range tests {
		if got := BaseURL(tt.endpoint); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("sends the configured request and parses the answer", func(t *testing.T) {
		t.Parallel()

		type chatRequest struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
		}
		var (
			gotAuth string
			gotPath string
			gotReq  chatRequest
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(completion("```json\n{\"summary\":\"S\",\"tags\":[\"t1\"]}\n```")))
		}))
		defer server.Close()

		s, err := New(testConfig(server.URL + "/v1/chat/completions"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		got, err := s.Summarize(context.Background(), "<p>page</p>")
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if got.Summary != "S" || got.JoinedTags() != "t1" {
			t.Errorf("Summarize() = %+v", got)
		}

		if gotAuth != "Bearer sk-test-key" {
			t.Errorf("Authorization = %q", gotAuth)
		}
		if gotPath != "/v1/chat/completions" {
			t.Errorf("path = %q", gotPath)
		}
		if gotReq.Model != "test-model" || gotReq.MaxTokens != config.DefaultLLMMaxTokens {
			t.Errorf("unexpected request: %+v", gotReq)
		}
		if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
			t.Fatalf("unexpected messages: %+v", gotReq.Messages)
		}
		if want := config.DefaultPromptTemplate + "\n\n<p>page</p>"; gotReq.Messages[1].Content != want {
			t.Errorf("user message = %q, want %q", gotReq.Messages[1].Content, want)
		}
	})

	t.Run("retries timeouts", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(completion(`{"summary":"late","tags":[]}`)))
		}))
		defer server.Close()

		cfg := testConfig(server.URL + "/v1/chat/completions")
		cfg.Timeout = 0.1
		s, err := New(cfg, WithRetry(3, time.Millisecond))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		got, err := s.Summarize(context.Background(), "text")
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if got.Summary != "late" {
			t.Errorf("Summary = %q, want late", got.Summary)
		}
		if n := calls.Load(); n != 3 {
			t.Errorf("calls = %d, want 3", n)
		}
	})

	t.Run("gives up after the last timeout", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		cfg := testConfig(server.URL + "/v1/chat/completions")
		cfg.Timeout = 0.1
		s, err := New(cfg, WithRetry(3, time.Millisecond))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		got, err := s.Summarize(context.Background(), "text")
		if err == nil {
			t.Fatal("expected error")
		}
		if !got.IsEmpty() {
			t.Errorf("Summarize() = %+v, want empty", got)
		}
		if n := calls.Load(); n != 3 {
			t.Errorf("calls = %d, want 3", n)
		}
	})

	t.Run("stalled body is bounded by the timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"choices":[`))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		t.Cleanup(server.Close)
		t.Cleanup(func() { close(release) })

		cfg := testConfig(server.URL + "/v1/chat/completions")
		cfg.Timeout = 0.3
		s, err := New(cfg, WithRetry(1, 0))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		done := make(chan error, 1)
		go func() {
			_, err := s.Summarize(context.Background(), "text")
			done <- err
		}()

		select {
		case err := <-done:
			if err == nil {
				t.Error("expected error for a stalled body")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Summarize still blocked long after the llm timeout")
		}
	})

	t.Run("does not retry other failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
		}))
		defer server.Close()

		s, err := New(testConfig(server.URL+"/v1/chat/completions"), WithRetry(3, time.Millisecond))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		got, err := s.Summarize(context.Background(), "text")
		if err == nil {
			t.Fatal("expected error")
		}
		if !got.IsEmpty() {
			t.Errorf("Summarize() = %+v, want empty", got)
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})

	t.Run("error body with status 200 yields empty result", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":"context length exceeded"}`))
		}))
		defer server.Close()

		s, err := New(testConfig(server.URL + "/v1/chat/completions"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		got, err := s.Summarize(context.Background(), "text")
		if err == nil || !got.IsEmpty() {
			t.Errorf("Summarize() = %+v, %v, want empty result and error", got, err)
		}
	})
}

func TestCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("OK")))
	}))
	defer server.Close()

	s, err := New(testConfig(server.URL + "/v1/chat/completions"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got != "OK" {
		t.Errorf("Check() = %q, want OK", got)
	}
}
