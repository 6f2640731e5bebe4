package model

import "time"

// CrawlReport is a snapshot of the frontier used by the report writers.
type CrawlReport struct {
	// SeedURL is the configured seed, informational only.
	SeedURL string `json:"seed_url,omitempty"`

	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`

	// Counts holds the number of rows per status.
	Counts map[Status]int `json:"counts"`

	// Records are the frontier rows included in the report.
	Records []URLRecord `json:"records"`

	// Session is the run that produced the report, if the report was
	// written right after a crawl.
	Session *CrawlSession `json:"session,omitempty"`
}

// NewCrawlReport creates a report from the given rows and counts.
func NewCrawlReport(seedURL string, records []URLRecord, counts map[Status]int) *CrawlReport {
	if counts == nil {
		counts = make(map[Status]int)
	}
	if records == nil {
		records = make([]URLRecord, 0)
	}
	return &CrawlReport{
		SeedURL:     seedURL,
		GeneratedAt: time.Now(),
		Counts:      counts,
		Records:     records,
	}
}

// Total returns the number of frontier rows across all statuses.
func (r *CrawlReport) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Summarized returns the visited rows that carry a summary.
func (r *CrawlReport) Summarized() []URLRecord {
	out := make([]URLRecord, 0)
	for _, rec := range r.Records {
		if rec.Status == StatusVisited && rec.Summary != "" {
			out = append(out, rec)
		}
	}
	return out
}

// ByStatus returns the rows with the given status, in report order.
func (r *CrawlReport) ByStatus(status Status) []URLRecord {
	out := make([]URLRecord, 0)
	for _, rec := range r.Records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}
