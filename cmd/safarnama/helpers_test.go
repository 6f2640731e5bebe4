package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// testEnv is a temporary workspace with a configuration file whose paths
// all point into it.
type testEnv struct {
	dir     string
	config  string
	db      string
	sitemap string
}

// newTestEnv writes a configuration for seedURL and llmURL. extra is
// appended verbatim to the YAML document.
func newTestEnv(t *testing.T, seedURL, llmURL, extra string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "safarnama.yaml"),
		db:      filepath.Join(dir, "data", "safarnama.db"),
		sitemap: filepath.Join(dir, "out", "sitemap.xml"),
	}
	if llmURL == "" {
		llmURL = "http://127.0.0.1:1/v1/chat/completions"
	}

	content := fmt.Sprintf(`base_url: %q
max_depth: 1
delay: 0
db_path: %q
generate_sitemap: true
sitemap_file: %q
respect_robots: false
download_binaries: true
download_dir: %q
image_dir: %q
llm:
  endpoint: %q
  model: "test-model"
  timeout: 5
search:
  timeout: 5
  retries: 0
%s`, seedURL, env.db, env.sitemap,
		filepath.Join(dir, "downloads"), filepath.Join(dir, "images"), llmURL, extra)

	if err := os.WriteFile(env.config, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

// run executes the root command with --config set and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

// siteServer serves a small site: the seed page links to /a, to a PDF and
// to another host.
func siteServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
<p>Welcome home.</p>
<a href="/a">A</a>
<a href="/doc.pdf">Doc</a>
<a href="https://elsewhere.test/x">Elsewhere</a>
</body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>A</title></head><body><p>Page A.</p><a href="/b">B</a></body></html>`))
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// llmServer answers every chat completion with content.
func llmServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}
