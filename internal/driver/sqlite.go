package driver

import (
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"
)

// NewSQLiteDriver opens the database file at path. SQLite has no server-side
// read-only transactions, so queries are prepared on the connection directly.
func NewSQLiteDriver(path string) (Driver, error) {
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return nil, errors.New("sqlite URL has no database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return newSQLDriver("sqlite", db, false), nil
}
