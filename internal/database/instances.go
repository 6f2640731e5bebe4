package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/safarnama/internal/model"
)

// instanceColumns is the column list scanned by scanInstance.
const instanceColumns = `id, url, version, tls, csp, html, certificate, ipv6, country, network,
	search_response_time, google_response_time, initial_response_time, uptime, priority, sleep_until`

// UpsertInstance inserts a backend instance or refreshes the descriptive
// metadata of an existing one. Priority and cooldown of an existing row are
// left untouched; new rows start at DefaultBackendPriority with no cooldown.
func (cdb *CrawlDB) UpsertInstance(ctx context.Context, inst *model.BackendInstance) error {
	if inst == nil || inst.URL == "" {
		return ErrInvalidInstance
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metadata := []any{
		nullString(inst.Version),
		nullString(inst.TLSGrade),
		nullString(inst.CSPGrade),
		nullString(inst.HTMLGrade),
		nullString(inst.Certificate),
		boolToInt(inst.IPv6),
		nullString(inst.Country),
		nullString(inst.NetworkType),
		nullFloat(inst.SearchResponseTime),
		nullFloat(inst.GoogleResponseTime),
		nullFloat(inst.InitialResponseTime),
		nullFloat(inst.Uptime),
	}

	update := `
	UPDATE instances SET
		version = ?, tls = ?, csp = ?, html = ?, certificate = ?, ipv6 = ?, country = ?, network = ?,
		search_response_time = ?, google_response_time = ?, initial_response_time = ?, uptime = ?
	WHERE url = ?
	`
	result, err := tx.ExecContext(ctx, cdb.dialect.rebind(update), append(metadata, inst.URL)...)
	if err != nil {
		return fmt.Errorf("failed to update instance %s: %w", inst.URL, err)
	}

	// MySQL reports zero affected rows when nothing changed, so existence
	// is checked explicitly instead of trusting RowsAffected.
	if n, _ := result.RowsAffected(); n == 0 {
		var id int64
		err := tx.QueryRowContext(ctx, cdb.dialect.rebind(`SELECT id FROM instances WHERE url = ?`), inst.URL).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			insert := `
			INSERT INTO instances (url, version, tls, csp, html, certificate, ipv6, country, network,
				search_response_time, google_response_time, initial_response_time, uptime, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			args := append([]any{inst.URL}, metadata...)
			args = append(args, model.DefaultBackendPriority)
			if _, err := tx.ExecContext(ctx, cdb.dialect.rebind(insert), args...); err != nil {
				return fmt.Errorf("failed to insert instance %s: %w", inst.URL, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up instance %s: %w", inst.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit instance %s: %w", inst.URL, err)
	}
	return nil
}

// GetInstance returns the instance stored under rawURL, or nil, nil.
func (cdb *CrawlDB) GetInstance(ctx context.Context, rawURL string) (*model.BackendInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE url = ?`
	inst, err := scanInstance(cdb.queryRow(ctx, query, rawURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", rawURL, err)
	}
	return inst, nil
}

// ListInstances returns every instance ordered by priority, then id.
func (cdb *CrawlDB) ListInstances(ctx context.Context) ([]model.BackendInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances ORDER BY priority, id`
	return cdb.listInstances(ctx, query)
}

// ListAvailable returns the instances with no cooldown or a cooldown that
// ended at or before now, ordered by ascending priority, then id.
func (cdb *CrawlDB) ListAvailable(ctx context.Context, now time.Time) ([]model.BackendInstance, error) {
	query := `
	SELECT ` + instanceColumns + `
	FROM instances
	WHERE sleep_until IS NULL OR sleep_until <= ?
	ORDER BY priority, id
	`
	return cdb.listInstances(ctx, query, now.UnixMilli())
}

func (cdb *CrawlDB) listInstances(ctx context.Context, query string, args ...any) ([]model.BackendInstance, error) {
	rows, err := cdb.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	instances := make([]model.BackendInstance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// RefreshPriorities recomputes every priority as 100 - uptime, treating an
// unknown uptime as 0.
//
// The computation happens in Go rather than SQL because integer casts
// truncate in SQLite and MySQL but round in PostgreSQL.
func (cdb *CrawlDB) RefreshPriorities(ctx context.Context) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id, uptime FROM instances`)
	if err != nil {
		return fmt.Errorf("failed to read uptimes: %w", err)
	}

	type score struct {
		id       int64
		priority int
	}
	scores := make([]score, 0)
	for rows.Next() {
		var id int64
		var uptime sql.NullFloat64
		if err := rows.Scan(&id, &uptime); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan uptime: %w", err)
		}
		scores = append(scores, score{id: id, priority: model.PriorityFromUptime(floatPtr(uptime))})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("failed to read uptimes: %w", err)
	}
	_ = rows.Close()

	update := cdb.dialect.rebind(`UPDATE instances SET priority = ? WHERE id = ?`)
	for _, s := range scores {
		if _, err := tx.ExecContext(ctx, update, s.priority, s.id); err != nil {
			return fmt.Errorf("failed to update priority: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit priorities: %w", err)
	}
	return nil
}

// SetSleepUntil puts the instance into cooldown until t. Unknown URLs are
// ignored.
func (cdb *CrawlDB) SetSleepUntil(ctx context.Context, rawURL string, t time.Time) error {
	if _, err := cdb.exec(ctx, `UPDATE instances SET sleep_until = ? WHERE url = ?`, toMillis(t), rawURL); err != nil {
		return fmt.Errorf("failed to set cooldown of %s: %w", rawURL, err)
	}
	return nil
}

// ClearSleep removes the cooldown of the instance. Unknown URLs are ignored.
func (cdb *CrawlDB) ClearSleep(ctx context.Context, rawURL string) error {
	if _, err := cdb.exec(ctx, `UPDATE instances SET sleep_until = NULL WHERE url = ?`, rawURL); err != nil {
		return fmt.Errorf("failed to clear cooldown of %s: %w", rawURL, err)
	}
	return nil
}

// ClearAllSleep removes every cooldown and returns the number of instances
// that were in cooldown.
func (cdb *CrawlDB) ClearAllSleep(ctx context.Context) (int64, error) {
	result, err := cdb.exec(ctx, `UPDATE instances SET sleep_until = NULL WHERE sleep_until IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cooldowns: %w", err)
	}
	return result.RowsAffected()
}

// scanInstance scans one row selected with instanceColumns.
func scanInstance(row rowScanner) (*model.BackendInstance, error) {
	var (
		inst                                        model.BackendInstance
		version, tls, csp, html, cert, country, net sql.NullString
		ipv6                                        int
		searchRT, googleRT, initialRT, uptime       sql.NullFloat64
		sleepUntil                                  sql.NullInt64
	)
	err := row.Scan(
		&inst.ID,
		&inst.URL,
		&version,
		&tls,
		&csp,
		&html,
		&cert,
		&ipv6,
		&country,
		&net,
		&searchRT,
		&googleRT,
		&initialRT,
		&uptime,
		&inst.Priority,
		&sleepUntil,
	)
	if err != nil {
		return nil, err
	}

	inst.Version = version.String
	inst.TLSGrade = tls.String
	inst.CSPGrade = csp.String
	inst.HTMLGrade = html.String
	inst.Certificate = cert.String
	inst.IPv6 = ipv6 != 0
	inst.Country = country.String
	inst.NetworkType = net.String
	inst.SearchResponseTime = floatPtr(searchRT)
	inst.GoogleResponseTime = floatPtr(googleRT)
	inst.InitialResponseTime = floatPtr(initialRT)
	inst.Uptime = floatPtr(uptime)
	inst.SleepUntil = fromMillis(sleepUntil)
	return &inst, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
