// Package sitemap writes the URLs visited by a crawl as an XML sitemap.
package sitemap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Namespace is the sitemap protocol namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URLSet is the root element of a sitemap.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL is one sitemap entry.
type URL struct {
	Loc string `xml:"loc"`
}

// Build creates a URLSet with one entry per distinct URL, in the given
// order. Empty strings are skipped.
func Build(urls []string) *URLSet {
	set := &URLSet{
		Xmlns: Namespace,
		URLs:  make([]URL, 0, len(urls)),
	}
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		set.URLs = append(set.URLs, URL{Loc: u})
	}
	return set
}

// Write encodes the sitemap of urls to w, including the XML declaration.
func Write(w io.Writer, urls []string) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(Build(urls)); err != nil {
		return fmt.Errorf("failed to encode sitemap: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode sitemap: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the sitemap of urls to path, creating its directory.
func WriteFile(path string, urls []string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create sitemap directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the configuration
	if err != nil {
		return fmt.Errorf("failed to create sitemap: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return Write(f, urls)
}
