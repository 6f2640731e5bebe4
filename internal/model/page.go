package model

import "strings"

// Page is a fetched HTTP response as seen by the crawl controller.
type Page struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code. It is recorded but not
	// used for classification; any response counts as a successful fetch.
	StatusCode int `json:"status_code"`

	// ContentType is the raw Content-Type header.
	ContentType string `json:"content_type"`

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte `json:"-"`
}

// MediaType returns the Content-Type without parameters, e.g.
// "text/html; charset=utf-8" becomes "text/html".
func (p *Page) MediaType() string {
	return MediaType(p.ContentType)
}

// IsHTML reports whether the media type denotes HTML (text/html,
// application/xhtml+xml).
func (p *Page) IsHTML() bool {
	return strings.Contains(strings.ToLower(p.MediaType()), "html")
}

// MediaType strips parameters from a Content-Type header value. The result
// is compared verbatim against the accepted content types, so no case
// folding is done here.
func MediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mediaType)
}
