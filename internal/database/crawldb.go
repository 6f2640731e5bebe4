package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"   // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// CrawlDB is the persistent store of the crawl frontier and of the search
// backend instances. It speaks SQLite, PostgreSQL and MySQL through
// database/sql; the dialect is chosen from the connection string.
//
// Every operation returns its storage error to the caller. Deciding
// whether a failure aborts or is logged and skipped is the caller's job.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dialect selects placeholders and insert syntax.
	dialect dialect

	// path is the SQLite database file, empty for server databases.
	path string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the SQLite file and its directory if they
	// don't exist. It has no effect on server databases.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging on SQLite.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open connects to the database described by conn and creates the schema.
// See parseTarget for the accepted connection strings.
func Open(conn string, opts Options) (*CrawlDB, error) {
	t, err := parseTarget(conn)
	if err != nil {
		return nil, err
	}

	dsn := t.dsn
	if t.dialect == dialectSQLite {
		dsn, err = sqliteDSN(t.path, opts)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(t.dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", t.dialect, err)
	}

	if t.dialect == dialectSQLite {
		// SQLite only supports one writer and the crawler is sequential.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:      db,
		dialect: t.dialect,
		path:    t.path,
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", t.dialect, err)
	}

	if t.dialect == dialectSQLite && opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// sqliteDSN builds the modernc.org/sqlite connection string for path.
// When CreateIfNotExists is false, mode=rw prevents creating new files.
func sqliteDSN(path string, opts Options) (string, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return "", fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", path)
		} else if err != nil {
			return "", fmt.Errorf("failed to check database path: %w", err)
		}
		return path + "?mode=rw", nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return path + "?mode=rwc", nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Dialect returns the name of the connected database flavor.
func (cdb *CrawlDB) Dialect() string {
	return cdb.dialect.String()
}

// Path returns the SQLite file path, or "" for server databases.
func (cdb *CrawlDB) Path() string {
	return cdb.path
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables(ctx context.Context) error {
	for _, stmt := range cdb.dialect.schema() {
		if _, err := cdb.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// exec runs a write statement written with '?' placeholders.
func (cdb *CrawlDB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return cdb.db.ExecContext(ctx, cdb.dialect.rebind(query), args...)
}

// query runs a read statement written with '?' placeholders.
func (cdb *CrawlDB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return cdb.db.QueryContext(ctx, cdb.dialect.rebind(query), args...)
}

// queryRow runs a single row read written with '?' placeholders.
func (cdb *CrawlDB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return cdb.db.QueryRowContext(ctx, cdb.dialect.rebind(query), args...)
}

// nullString maps "" to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullFloat maps nil to SQL NULL.
func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// floatPtr converts a scanned nullable float.
func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// toMillis stores a time as Unix milliseconds; the zero time is NULL.
func toMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

// fromMillis converts a scanned nullable Unix millisecond value.
func fromMillis(ms sql.NullInt64) time.Time {
	if !ms.Valid {
		return time.Time{}
	}
	return time.UnixMilli(ms.Int64)
}
