package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects bounds redirect chains followed by the clients.
const maxRedirects = 10

// Timeouts splits a request deadline into connection phases. A zero field
// leaves that phase bounded only by the overall client timeout.
type Timeouts struct {
	// Dial bounds establishing the TCP connection.
	Dial time.Duration

	// TLSHandshake bounds the TLS handshake.
	TLSHandshake time.Duration

	// ResponseHeader bounds the wait for response headers after the
	// request was written.
	ResponseHeader time.Duration

	// IdleConn is how long an idle pooled connection is kept.
	IdleConn time.Duration
}

// Client builds configured HTTP clients.
type Client struct {
	// timeout is the overall per-request timeout.
	timeout time.Duration

	// phases holds the per-phase timeouts.
	phases Timeouts

	// userAgent is sent with every request when non-empty.
	userAgent string

	// headers are added to every request.
	headers map[string]string

	// proxyURL is the configured proxy, nil for direct connections.
	proxyURL *url.URL

	// dialer is set for SOCKS proxies.
	dialer proxy.Dialer
}

// Option configures a Client.
type Option func(*Client) error

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.timeout = d
		return nil
	}
}

// WithPhaseTimeouts sets the per-phase timeouts.
func WithPhaseTimeouts(t Timeouts) Option {
	return func(c *Client) error {
		c.phases = t
		return nil
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// WithHeaders adds fixed headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) error {
		c.headers = headers
		return nil
	}
}

// WithProxy routes every request through the proxy at rawURL. An empty
// rawURL keeps direct connections.
func WithProxy(rawURL string) Option {
	return func(c *Client) error {
		if rawURL == "" {
			return nil
		}
		u, err := parseProxy(rawURL)
		if err != nil {
			return err
		}
		c.proxyURL = u

		if u.Scheme == "socks5" || u.Scheme == "socks5h" {
			d, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			c.dialer = d
		}
		return nil
	}
}

// NewClient creates a Client. It validates the options but performs no
// network operation.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout: 30 * time.Second,
		phases: Timeouts{
			IdleConn: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// parseProxy validates a proxy URL.
func parseProxy(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxy, u.Scheme)
	}

	if !isValidHostPort(u.Host) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, rawURL)
	}
	return u, nil
}

// isValidHostPort checks for a non-empty host and a port in 1..65535.
func isValidHostPort(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// ProxyURL returns the configured proxy, or nil.
func (c *Client) ProxyURL() *url.URL {
	return c.proxyURL
}

// Timeout returns the overall per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// NewHTTPClient returns an HTTP client using the configured proxy,
// timeouts and headers. Each call returns an independent connection pool.
func (c *Client) NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   c.phases.Dial,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   c.phases.TLSHandshake,
		ResponseHeaderTimeout: c.phases.ResponseHeader,
		IdleConnTimeout:       c.phases.IdleConn,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		ForceAttemptHTTP2:     true,
	}

	switch {
	case c.dialer != nil:
		transport.DialContext = c.dialContext
	case c.proxyURL != nil:
		transport.Proxy = http.ProxyURL(c.proxyURL)
	}

	return &http.Client{
		Transport: &headerTransport{
			base:      transport,
			userAgent: c.userAgent,
			headers:   c.headers,
		},
		Timeout: c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// dialContext dials through the SOCKS proxy, honoring ctx when the dialer
// supports it.
func (c *Client) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// headerTransport sets the User-Agent and fixed headers on every request,
// redirects included.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
