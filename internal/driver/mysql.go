package driver

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// NewMySQLDriver builds a MySQL driver from the part of the URL after the
// scheme, e.g. "localhost:3306/db?tls=true".
func NewMySQLDriver(rest string, opts Options) (Driver, error) {
	cfg, err := mysqlConfig(rest, opts)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return newSQLDriver("mysql", sql.OpenDB(connector), true), nil
}

func mysqlConfig(rest string, opts Options) (*mysql.Config, error) {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql URL: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if cfg.Addr == "" {
		cfg.Addr = "localhost:3306"
	} else if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")

	cfg.User = opts.User
	cfg.Passwd = opts.Password
	if cfg.User == "" && u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	// DATE/DATETIME arrive as time.Time rather than []byte.
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if opts.Location != nil {
		cfg.Loc = opts.Location
	}
	if opts.ConnectTimeout > 0 {
		cfg.Timeout = opts.ConnectTimeout
	}

	q := u.Query()
	if tls := q.Get("tls"); tls != "" {
		cfg.TLSConfig = tls
	} else if strings.EqualFold(q.Get("useSSL"), "true") {
		cfg.TLSConfig = "true"
	}
	return cfg, nil
}
