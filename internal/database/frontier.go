package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/safarnama/internal/model"
)

// urlColumns is the column list scanned by scanURLRecord.
const urlColumns = "url, depth, status, content_type, summary, tags"

// Enqueue inserts rawURL at depth with the given status if it is not
// already known. An existing row is never modified, so re-discovering a URL
// keeps the depth and status of its first insertion.
//
// The returned bool reports whether a new row was created.
func (cdb *CrawlDB) Enqueue(ctx context.Context, rawURL string, depth int, status model.Status) (bool, error) {
	if rawURL == "" || depth < 0 {
		return false, ErrInvalidURLRecord
	}
	if !status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if limit := cdb.dialect.maxURLLength(); limit > 0 && utf8.RuneCountInString(rawURL) > limit {
		return false, fmt.Errorf("%w: %d characters", ErrURLTooLong, utf8.RuneCountInString(rawURL))
	}

	query := cdb.dialect.insertIgnore("urls", "url", "depth", "status")
	result, err := cdb.exec(ctx, query, rawURL, depth, status.String())
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s: %w", rawURL, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s: %w", rawURL, err)
	}
	return n > 0, nil
}

// DequeueNext returns the to_visit row with the smallest depth not greater
// than maxDepth, breaking ties by insertion order. It returns nil, nil when
// no such row exists.
//
// The row is not claimed: its status stays to_visit until MarkStatus is
// called. This is only safe with a single sequential consumer.
func (cdb *CrawlDB) DequeueNext(ctx context.Context, maxDepth int) (*model.URLRecord, error) {
	query := `
	SELECT ` + urlColumns + `
	FROM urls
	WHERE status = ? AND depth <= ?
	ORDER BY depth, id
	LIMIT 1
	`

	record, err := scanURLRecord(cdb.queryRow(ctx, query, model.StatusToVisit.String(), maxDepth))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue next url: %w", err)
	}
	return record, nil
}

// MarkStatus sets the status and content type of an existing row. An empty
// contentType is stored as NULL. Unknown URLs are ignored.
func (cdb *CrawlDB) MarkStatus(ctx context.Context, rawURL string, status model.Status, contentType string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	query := `UPDATE urls SET status = ?, content_type = ? WHERE url = ?`
	if _, err := cdb.exec(ctx, query, status.String(), nullString(contentType), rawURL); err != nil {
		return fmt.Errorf("failed to mark %s as %s: %w", rawURL, status, err)
	}
	return nil
}

// RecordSummary stores the summary and joined tags of an existing row.
// Unknown URLs are ignored.
func (cdb *CrawlDB) RecordSummary(ctx context.Context, rawURL, summary, tags string) error {
	query := `UPDATE urls SET summary = ?, tags = ? WHERE url = ?`
	if _, err := cdb.exec(ctx, query, nullString(summary), nullString(tags), rawURL); err != nil {
		return fmt.Errorf("failed to record summary of %s: %w", rawURL, err)
	}
	return nil
}

// GetURL returns the row of rawURL, or nil, nil if it is unknown.
func (cdb *CrawlDB) GetURL(ctx context.Context, rawURL string) (*model.URLRecord, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE url = ?`

	record, err := scanURLRecord(cdb.queryRow(ctx, query, rawURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get url %s: %w", rawURL, err)
	}
	return record, nil
}

// ListURLs returns the rows with any of the given statuses, or every row
// when no status is given, ordered by depth and insertion order.
func (cdb *CrawlDB) ListURLs(ctx context.Context, statuses ...model.Status) ([]model.URLRecord, error) {
	query := `SELECT ` + urlColumns + ` FROM urls`
	args := make([]any, 0, len(statuses))

	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, s := range statuses {
			if !s.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
			}
			placeholders = append(placeholders, "?")
			args = append(args, s.String())
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY depth, id"

	rows, err := cdb.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	records := make([]model.URLRecord, 0)
	for rows.Next() {
		record, err := scanURLRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// CountByStatus returns the number of rows per status. Every known status
// is present in the result, with zero when it has no rows.
func (cdb *CrawlDB) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := cdb.query(ctx, `SELECT status, COUNT(*) FROM urls GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count urls: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanURLRecord scans one row selected with urlColumns.
func scanURLRecord(row rowScanner) (*model.URLRecord, error) {
	var (
		record                     model.URLRecord
		status                     string
		contentType, summary, tags sql.NullString
	)
	if err := row.Scan(&record.URL, &record.Depth, &status, &contentType, &summary, &tags); err != nil {
		return nil, err
	}
	record.Status = model.Status(status)
	record.ContentType = contentType.String
	record.Summary = summary.String
	record.Tags = tags.String
	return &record, nil
}
