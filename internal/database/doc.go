// Package database provides the persistent storage of safarnama.
//
// The CrawlDB stores:
//   - the crawl frontier (table urls), one row per discovered URL
//   - the search backend instances (table instances) with priority and cooldown
//
// SQLite (via modernc.org/sqlite) is the default and needs no server.
// PostgreSQL (lib/pq) and MySQL (go-sql-driver/mysql) are selected by the
// connection string, which lets several machines share one frontier.
// Cooldown expiry is stored as Unix milliseconds so that comparisons behave
// the same on every dialect.
package database
