package driver

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// NewPostgresDriver builds a PostgreSQL driver from the part of the URL
// after the scheme, e.g. "localhost:5432/db?sslmode=disable".
func NewPostgresDriver(rest string, opts Options) (Driver, error) {
	dsn, err := postgresDSN(rest, opts)
	if err != nil {
		return nil, err
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return newSQLDriver("postgres", sql.OpenDB(connector), true), nil
}

func postgresDSN(rest string, opts Options) (string, error) {
	u, err := url.Parse("postgres://" + rest)
	if err != nil {
		return "", fmt.Errorf("invalid postgres URL: %w", err)
	}
	if opts.User != "" {
		u.User = url.UserPassword(opts.User, opts.Password)
	}

	q := u.Query()
	if opts.ConnectTimeout > 0 && q.Get("connect_timeout") == "" {
		secs := int(opts.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	if opts.Location != nil && opts.Location != time.Local && q.Get("timezone") == "" {
		q.Set("timezone", opts.Location.String())
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
