package model

import (
	"fmt"
	"strings"
)

// Status is the crawl state of a frontier row.
// A row starts as StatusToVisit and moves exactly once to one of the
// terminal statuses.
type Status string

const (
	// StatusToVisit marks a discovered URL that has not been processed yet.
	StatusToVisit Status = "to_visit"

	// StatusVisited marks a URL that was fetched with an accepted media type.
	StatusVisited Status = "visited"

	// StatusIgnored marks a URL that was excluded, disallowed, failed to
	// fetch, had an unsupported media type, or is a skipped binary.
	StatusIgnored Status = "ignored"

	// StatusDownloaded marks a binary URL that was saved to disk.
	StatusDownloaded Status = "downloaded"
)

// ContentTypeBinary is the synthetic content type recorded for URLs that
// were classified as binary from their suffix alone.
const ContentTypeBinary = "binary"

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusToVisit, StatusVisited, StatusIgnored, StatusDownloaded}

// String returns the persisted representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusVisited || s == StatusIgnored || s == StatusDownloaded
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a persisted or user supplied string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown url status %q", s)
	}
	return status, nil
}

// URLRecord is one frontier row. There is exactly one record per URL.
//
// Depth is fixed when the record is created. ContentType, Summary and Tags
// are empty until the crawler fills them in; the database stores empty
// values as NULL.
type URLRecord struct {
	// URL is the primary key.
	URL string `json:"url"`

	// Depth is the number of link hops from the seed URL.
	Depth int `json:"depth"`

	// Status is the current crawl state.
	Status Status `json:"status"`

	// ContentType is the observed media type (parameters stripped), or
	// ContentTypeBinary for suffix-classified binaries.
	ContentType string `json:"content_type,omitempty"`

	// Summary is the LLM generated page summary.
	Summary string `json:"summary,omitempty"`

	// Tags is the comma joined, normalized tag list.
	Tags string `json:"tags,omitempty"`
}

// TagList splits the persisted tag string back into individual tags.
func (r *URLRecord) TagList() []string {
	if r.Tags == "" {
		return nil
	}
	parts := strings.Split(r.Tags, TagSeparator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
