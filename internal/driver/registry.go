package driver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedScheme is returned for URLs without a recognized prefix.
	ErrUnsupportedScheme = errors.New("unsupported connection URL scheme")

	// ErrDriverInit wraps failures while setting up the database driver.
	ErrDriverInit = errors.New("failed to initialize database driver")
)

type scheme struct {
	prefix  string
	dialect string
}

// schemes is checked in order; jdbc: forms are accepted for compatibility
// with existing connection strings.
var schemes = []scheme{
	{"jdbc:mysql://", "mysql"},
	{"mysql://", "mysql"},
	{"jdbc:postgresql://", "postgres"},
	{"postgresql://", "postgres"},
	{"postgres://", "postgres"},
	{"jdbc:sqlite:", "sqlite"},
	{"sqlite://", "sqlite"},
	{"mongodb://", "mongo"},
	{"mongodb+srv://", "mongo"},
}

// Dialect returns the dialect a URL selects and the URL with its prefix
// stripped.
func Dialect(url string) (dialect, rest string, ok bool) {
	for _, s := range schemes {
		if strings.HasPrefix(url, s.prefix) {
			return s.dialect, url[len(s.prefix):], true
		}
	}
	return "", "", false
}

// Supported reports whether url starts with a recognized scheme.
func Supported(url string) bool {
	_, _, ok := Dialect(url)
	return ok
}

// Schemes lists the accepted URL prefixes.
func Schemes() []string {
	out := make([]string, len(schemes))
	for i, s := range schemes {
		out[i] = s.prefix
	}
	return out
}

// Open prepares a driver for opts.URL. It does not dial; call Ping.
func Open(opts Options) (Driver, error) {
	dialect, rest, ok := Dialect(opts.URL)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, opts.URL)
	}

	var (
		d   Driver
		err error
	)
	switch dialect {
	case "mysql":
		d, err = NewMySQLDriver(rest, opts)
	case "postgres":
		d, err = NewPostgresDriver(rest, opts)
	case "sqlite":
		d, err = NewSQLiteDriver(rest)
	case "mongo":
		d, err = NewMongoDriver(opts)
	}
	if err != nil {
		return nil, errors.Join(ErrDriverInit, err)
	}
	return d, nil
}
