package database

import "errors"

var (
	// ErrInvalidURLRecord is returned by Enqueue for an empty URL or a
	// negative depth.
	ErrInvalidURLRecord = errors.New("invalid url record: url must be non-empty and depth non-negative")

	// ErrURLTooLong is returned when a URL exceeds what the database can
	// index. Only MySQL has such a limit.
	ErrURLTooLong = errors.New("url too long for the database")

	// ErrInvalidStatus is returned when a status is not one of the known
	// frontier statuses.
	ErrInvalidStatus = errors.New("invalid url status")

	// ErrInvalidInstance is returned when a backend instance has no URL.
	ErrInvalidInstance = errors.New("invalid backend instance: url must be non-empty")

	// ErrEmptyConnectionString is returned by Open for an empty connection string.
	ErrEmptyConnectionString = errors.New("empty database connection string")

	// ErrUnsupportedDatabase is returned for a connection string scheme
	// other than sqlite, postgres or mysql.
	ErrUnsupportedDatabase = errors.New("unsupported database")
)
