package driver

import (
	"context"
	"time"
)

// Driver abstracts the database connection and query execution.
type Driver interface {
	// Name returns the dialect name (e.g., "mysql", "postgres").
	Name() string

	// Ping verifies the connection to the database.
	Ping(ctx context.Context) error

	// Query runs a read-only query and returns a forward-only RowStreamer.
	Query(ctx context.Context, query string) (RowStreamer, error)

	// Close closes the database connection.
	Close() error
}

// Column is the metadata of one result column.
type Column struct {
	// Label is the column label (alias if the query gave one).
	Label string
	// TypeName is the driver's type name, e.g. "VARCHAR" or "INT4".
	TypeName string
	// Length is the declared display size of text columns. Zero when the
	// driver does not report one.
	Length int64
}

// RowStreamer iterates over query results.
// It is designed to be memory-efficient and stream-oriented.
type RowStreamer interface {
	// Columns returns the result column metadata. Safe to call after Query returns.
	Columns() ([]Column, error)

	// Next advances to the next row. Returns false when there are no more rows or an error occurs.
	Next() bool

	// Scan copies the columns in the current row into the values pointed at by dest.
	// The number of values must be the same as the number of columns.
	Scan(dest ...any) error

	// Err returns the error, if any, that was encountered during iteration.
	Err() error

	// Close closes the streamer and frees resources.
	Close() error
}

// Options carries everything needed to open a connection.
type Options struct {
	URL      string
	User     string
	Password string
	// Location is used by drivers that need a zone for values stored without one.
	Location *time.Location
	// ConnectTimeout is handed to the driver's own dialer. Zero keeps the driver default.
	ConnectTimeout time.Duration
}
