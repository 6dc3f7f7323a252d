// Package loader runs a query against the session's database and appends
// the result to a dataset.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sqlbridge/internal/dataset"
	"sqlbridge/internal/driver"
	"sqlbridge/internal/session"
)

// Host is the dataset a Loader writes to. *dataset.Dataset implements it.
type Host interface {
	ObsTotal() int64
	SetObsTotal(n int64) error
	VarIndex(name string) (int, bool)
	VarInfo(idx int) (dataset.VarInfo, bool)
	MakeVarName(label string) string
	AddVar(name string, kind dataset.Kind, width int) (int, error)
	StoreNum(idx int, obs int64, val float64) error
	StoreStr(idx int, obs int64, val string) error
}

// OpenFunc prepares a driver for a connection.
type OpenFunc func(driver.Options) (driver.Driver, error)

// Result summarizes one ExecuteQuery call. FirstObs..LastObs is the range
// of observations written; it is empty when RowsLoaded is zero.
type Result struct {
	QueryID    string
	RowsLoaded int64
	FirstObs   int64
	LastObs    int64
	Columns    []ColumnDescriptor
	Duration   time.Duration
}

// Loader streams query results into a Host.
type Loader struct {
	session *session.Session
	host    Host
	out     io.Writer
	open    OpenFunc
}

// Option customizes a Loader.
type Option func(*Loader)

// WithOutput sets where user-facing progress messages go.
func WithOutput(w io.Writer) Option {
	return func(l *Loader) { l.out = w }
}

// WithOpenFunc replaces driver.Open.
func WithOpenFunc(fn OpenFunc) Option {
	return func(l *Loader) { l.open = fn }
}

func New(s *session.Session, host Host, opts ...Option) *Loader {
	l := &Loader{
		session: s,
		host:    host,
		out:     io.Discard,
		open:    driver.Open,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ExecuteQuery runs query read-only and appends its rows to the host after
// the current last observation. NULL values leave their cell untouched.
//
// Every column is checked before anything is declared, so an unsupported
// or conflicting column leaves the host unchanged. A failure while
// streaming keeps the rows appended so far.
func (l *Loader) ExecuteQuery(ctx context.Context, query string) (res *Result, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query needs an SQL statement", session.ErrInvalidArguments)
	}

	cfg, release, err := l.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	queryID := uuid.New().String()
	logger := slog.With("query_id", queryID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, newExecutionError("panic while loading query: %v", r)
		}
		if err != nil {
			logger.Error("Query failed", errorAttrs(err)...)
		}
	}()

	logger.Info("Starting query", "url", cfg.URL, "user", cfg.Credentials.User())

	db, err := l.open(cfg.DriverOptions())
	if err != nil {
		return nil, err
	}
	defer closeLogged(logger, "connection", db)

	if err := db.Ping(ctx); err != nil {
		return nil, err
	}
	l.printf("Successfully connected to the database, running query...\n")

	rs, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer closeLogged(logger, "cursor", rs)

	cols, err := rs.Columns()
	if err != nil {
		return nil, newExecutionError("read column metadata: %w", err)
	}
	descs, err := l.plan(db.Name(), cols)
	if err != nil {
		return nil, err
	}
	if err := l.declare(descs); err != nil {
		return nil, err
	}

	initialObs := l.host.ObsTotal()
	n, err := l.stream(rs, descs, initialObs, cfg.Location)
	if err != nil {
		return nil, err
	}

	res = &Result{
		QueryID:    queryID,
		RowsLoaded: n,
		FirstObs:   initialObs + 1,
		LastObs:    initialObs + n,
		Columns:    descs,
		Duration:   time.Since(start),
	}

	l.printf("Retrieved %d rows.\n", n)
	l.printf("Observation count set to: %d\n", l.host.ObsTotal())
	if n > 0 {
		l.printf("Data loaded successfully into observations %d to %d\n", res.FirstObs, res.LastObs)
	}
	logger.Info("Query loaded",
		"rows", n,
		"columns", len(descs),
		"first_obs", res.FirstObs,
		"last_obs", res.LastObs,
		"duration", res.Duration,
	)
	return res, nil
}

// stream appends one observation per fetched row and returns how many
// rows were stored.
func (l *Loader) stream(rs driver.RowStreamer, descs []ColumnDescriptor, initialObs int64, loc *time.Location) (int64, error) {
	values := make([]any, len(descs))
	scanArgs := make([]any, len(descs))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	var n int64
	for rs.Next() {
		obs := initialObs + n + 1
		if err := l.host.SetObsTotal(obs); err != nil {
			return n, newExecutionError("grow dataset to %d observations: %w", obs, err)
		}

		for i := range values {
			values[i] = nil
		}
		if err := rs.Scan(scanArgs...); err != nil {
			return n, newExecutionError("scan row %d: %w", n+1, err)
		}

		for i := range descs {
			if values[i] == nil {
				continue
			}
			if err := l.transfer(&descs[i], obs, values[i], loc); err != nil {
				return n, newExecutionError("row %d, column %s: %w", n+1, descs[i].Label, err)
			}
		}
		n++
	}
	if err := rs.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func (l *Loader) printf(format string, args ...any) {
	fmt.Fprintf(l.out, format, args...)
}
