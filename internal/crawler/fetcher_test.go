package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFetcher(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>hello</body></html>"))
		case "/big":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
		case "/files/report.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	t.Run("get returns the page", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(server.Client(), WithDelay(0))
		page, err := f.Get(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if page.MediaType() != "text/html" || !page.IsHTML() {
			t.Errorf("unexpected content type %q", page.ContentType)
		}
		if string(page.Body) != "<html><body>hello</body></html>" {
			t.Errorf("Body = %q", page.Body)
		}
	})

	t.Run("get succeeds on error status", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(server.Client(), WithDelay(0))
		page, err := f.Get(context.Background(), server.URL+"/missing")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if page.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d", page.StatusCode)
		}
	})

	t.Run("get limits the body", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(server.Client(), WithDelay(0), WithMaxBodySize(100))
		page, err := f.Get(context.Background(), server.URL+"/big")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(page.Body) != 100 {
			t.Errorf("len(Body) = %d, want 100", len(page.Body))
		}
	})

	t.Run("download writes the file", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "downloads")
		f := NewFetcher(server.Client(), WithDelay(0))
		dest, err := f.Download(context.Background(), server.URL+"/files/report.pdf", dir)
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		if dest != filepath.Join(dir, "report.pdf") {
			t.Errorf("dest = %q", dest)
		}
		data, err := os.ReadFile(dest) //nolint:gosec // test file in TempDir
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "%PDF-1.4" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("slow download outlives the page timeout", func(t *testing.T) {
		t.Parallel()

		slow := chunkServer(t, 4, 300*time.Millisecond)
		page := &http.Client{Timeout: 500 * time.Millisecond}
		f := NewFetcher(page, WithDelay(0), WithDownloadClient(slow.Client(), 2*time.Second))

		dest, err := f.Download(context.Background(), slow.URL+"/files/big.bin", t.TempDir())
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		data, err := os.ReadFile(dest) //nolint:gosec // test file in TempDir
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "chunkchunkchunkchunk" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("stalled download fails after the read timeout", func(t *testing.T) {
		t.Parallel()

		slow := chunkServer(t, 2, 2*time.Second)
		f := NewFetcher(slow.Client(), WithDelay(0), WithDownloadClient(nil, 200*time.Millisecond))

		start := time.Now()
		if _, err := f.Download(context.Background(), slow.URL+"/files/big.bin", t.TempDir()); err == nil {
			t.Fatal("expected error for a stalled body")
		}
		if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
			t.Errorf("Download() took %v", elapsed)
		}
	})

	t.Run("download fails on error status", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		f := NewFetcher(server.Client(), WithDelay(0))
		_, err := f.Download(context.Background(), server.URL+"/files/missing.zip", dir)
		if !errors.Is(err, ErrDownloadStatus) {
			t.Errorf("Download() error = %v, want ErrDownloadStatus", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "missing.zip")); !os.IsNotExist(err) {
			t.Error("no file should be left behind")
		}
	})

	t.Run("requests are paced", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(server.Client(), WithDelay(100*time.Millisecond))
		start := time.Now()
		for range 3 {
			if _, err := f.Get(context.Background(), server.URL+"/page"); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 190*time.Millisecond {
			t.Errorf("3 paced requests took %v, want at least ~200ms", elapsed)
		}
	})

	t.Run("pacing honors cancellation", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(server.Client(), WithDelay(time.Hour))
		if _, err := f.Get(context.Background(), server.URL+"/page"); err != nil {
			t.Fatalf("first Get() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := f.Get(ctx, server.URL+"/page"); err == nil {
			t.Error("expected error while waiting for the limiter")
		}
	})
}

// chunkServer streams n chunks of "chunk" with gap between them.
func chunkServer(t *testing.T, n int, gap time.Duration) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		flusher, _ := w.(http.Flusher)
		for i := range n {
			if i > 0 {
				select {
				case <-r.Context().Done():
					return
				case <-time.After(gap):
				}
			}
			_, _ = w.Write([]byte("chunk"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownloadName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://a.test/files/report.pdf", "report.pdf"},
		{"https://a.test/files/report.pdf?v=2", "report.pdf"},
		{"https://a.test/", defaultDownloadName},
		{"https://a.test", defaultDownloadName},
	}
	for _, tt := range tests {
		got, err := downloadName(tt.url)
		if err != nil {
			t.Fatalf("downloadName(%q) error = %v", tt.url, err)
		}
		if got != tt.want {
			t.Errorf("downloadName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
