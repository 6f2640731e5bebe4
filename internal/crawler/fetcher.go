package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/safarnama/internal/model"
)

// defaultDownloadName is used when a URL path has no file name.
const defaultDownloadName = "index"

// Fetcher performs the crawler's outbound requests. Every request waits
// on a shared limiter, so successive requests are at least the configured
// delay apart.
type Fetcher struct {
	// client is configured by the transport package.
	client *http.Client

	// limiter paces every request.
	limiter *rate.Limiter

	// maxBodySize limits the size of page bodies to read.
	maxBodySize int64

	// downloadClient streams downloads. It must not carry an overall
	// timeout; readTimeout bounds each read instead.
	downloadClient *http.Client
	readTimeout    time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithDelay sets the minimum gap between successive requests. Zero or a
// negative value disables pacing.
func WithDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxBodySize sets the maximum page body size.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithDownloadClient sets the client used by Download. readTimeout is the
// longest a download may go without receiving data; zero disables it.
func WithDownloadClient(c *http.Client, readTimeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.downloadClient = c
		}
		if readTimeout > 0 {
			f.readTimeout = readTimeout
		}
	}
}

// NewFetcher creates a Fetcher over client. Downloads use client too unless
// WithDownloadClient is given.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		maxBodySize: 5 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.downloadClient == nil {
		f.downloadClient = client
	}
	return f
}

// Get fetches rawURL. Any response counts as success, whatever its status;
// only transport failures are returned as errors.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*model.Page, error) {
	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}

	return &model.Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Download streams rawURL into dir, named after the last path segment,
// and returns the written path. Existing files are overwritten.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir string) (string, error) {
	name, err := downloadName(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := f.send(ctx, f.downloadClient, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if f.readTimeout > 0 {
		idle := time.AfterFunc(f.readTimeout, cancel)
		defer idle.Stop()
		body = &idleReader{r: resp.Body, timer: idle, timeout: f.readTimeout}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d", ErrDownloadStatus, resp.StatusCode)
	}

	dest := filepath.Join(dir, name)
	out, err := os.Create(dest) //nolint:gosec // name is a single cleaned path segment
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	_, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	return f.send(ctx, f.client, rawURL)
}

// send waits for the limiter and issues a GET with client.
func (f *Fetcher) send(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	return resp, nil
}

// idleReader pushes timer back after every read that returns data. When
// the timer fires the request context is cancelled and the read fails.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

// downloadName returns the file name for rawURL.
func downloadName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid download url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == ".." || name == "" {
		name = defaultDownloadName
	}
	return name, nil
}
