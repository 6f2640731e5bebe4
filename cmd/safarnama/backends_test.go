package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// searxStub answers every search with body.
func searxStub(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// TestNewBackendsCmd tests the backends command tree.
func TestNewBackendsCmd(t *testing.T) {
	t.Parallel()

	cmd := NewBackendsCmd()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"list", "add", "import", "reset"} {
		if !names[want] {
			t.Errorf("expected %s subcommand", want)
		}
	}
}

// TestBackendsCommands tests registry management from the command line.
func TestBackendsCommands(t *testing.T) {
	t.Parallel()

	t.Run("list is empty before import", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "https://a.test/", "", "")
		out, err := env.run(t, "backends", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, "No backends registered") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("add is idempotent", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "https://a.test/", "", "")
		out, err := env.run(t, "backends", "add", "https://searx.a.test")
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if !strings.Contains(out, "Added https://searx.a.test") {
			t.Errorf("unexpected output:\n%s", out)
		}

		out, err = env.run(t, "backends", "add", "https://searx.a.test")
		if err != nil {
			t.Fatalf("second add failed: %v", err)
		}
		if !strings.Contains(out, "already registered") {
			t.Errorf("unexpected output:\n%s", out)
		}

		out, err = env.run(t, "backends", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if strings.Count(out, "https://searx.a.test") != 1 {
			t.Errorf("expected one listed instance:\n%s", out)
		}
	})

	t.Run("import from file computes priorities", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "https://a.test/", "", "")
		doc := `{"instances": {
  "https://searx.good.test/": {"version": "2024.1.1", "country": "DE", "uptime": {"uptimeYear": 99.5}},
  "https://searx.bad.test/": {"uptime": null}
}}`
		source := filepath.Join(env.dir, "instances.json")
		if err := os.WriteFile(source, []byte(doc), 0600); err != nil {
			t.Fatal(err)
		}

		out, err := env.run(t, "backends", "import", source)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(out, "Imported 2 instances") {
			t.Errorf("unexpected output:\n%s", out)
		}

		out, err = env.run(t, "backends", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		good := strings.Index(out, "https://searx.good.test/")
		bad := strings.Index(out, "https://searx.bad.test/")
		if good < 0 || bad < 0 || good > bad {
			t.Errorf("expected the instance with uptime listed first:\n%s", out)
		}
		if !strings.Contains(out, "DE") {
			t.Errorf("expected imported metadata:\n%s", out)
		}
	})

	t.Run("reset clears cooldowns", func(t *testing.T) {
		t.Parallel()

		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(broken.Close)

		env := newTestEnv(t, "https://a.test/", "", "")
		if _, err := env.run(t, "backends", "add", broken.URL); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if _, err := env.run(t, "search", "golang"); err == nil {
			t.Fatal("expected search to fail with only a rate limited instance")
		}

		out, err := env.run(t, "backends", "reset")
		if err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if !strings.Contains(out, "Cleared 1 cooldowns") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

// TestRunSearchCmd tests querying through the selector.
func TestRunSearchCmd(t *testing.T) {
	t.Parallel()

	answer := `{"query": "golang", "results": [
  {"url": "https://go.dev/", "title": "The Go Programming Language", "content": "Build simple, secure, scalable systems."},
  {"url": "https://pkg.go.dev/", "title": "Go Packages", "content": ""}
], "suggestions": ["golang tutorial"]}`

	t.Run("prints decoded results", func(t *testing.T) {
		t.Parallel()

		searx := searxStub(t, answer)
		env := newTestEnv(t, "https://a.test/", "", "")
		if _, err := env.run(t, "backends", "add", searx.URL); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		out, err := env.run(t, "search", "golang")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		for _, want := range []string{
			"Results from " + searx.URL,
			"1. The Go Programming Language",
			"https://pkg.go.dev/",
			"Suggestions: golang tutorial",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("limit and raw output", func(t *testing.T) {
		t.Parallel()

		searx := searxStub(t, answer)
		env := newTestEnv(t, "https://a.test/", "", "")
		if _, err := env.run(t, "backends", "add", searx.URL); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		out, err := env.run(t, "search", "-n", "1", "golang")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if strings.Contains(out, "Go Packages") {
			t.Errorf("limit ignored:\n%s", out)
		}

		out, err = env.run(t, "search", "--raw", "golang")
		if err != nil {
			t.Fatalf("raw search failed: %v", err)
		}
		if strings.TrimSpace(out) != answer {
			t.Errorf("raw output differs:\n%s", out)
		}
	})

	t.Run("fails without backends", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "https://a.test/", "", "")
		if _, err := env.run(t, "search", "golang"); err == nil {
			t.Error("expected error with an empty registry")
		}
	})
}
