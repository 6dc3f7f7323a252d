package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"sqlbridge/internal/typemap"
)

// sqlDriver is shared by the database/sql backed dialects. It holds a single
// connection and is meant to be used for one query and closed.
type sqlDriver struct {
	name string
	db   *sql.DB
	// readOnlyTx runs queries inside a read-only transaction.
	readOnlyTx bool
}

func newSQLDriver(name string, db *sql.DB, readOnlyTx bool) *sqlDriver {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &sqlDriver{name: name, db: db, readOnlyTx: readOnlyTx}
}

func (d *sqlDriver) Name() string {
	return d.name
}

func (d *sqlDriver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return NewConnectionError(err)
	}
	return nil
}

// Query prepares and executes query on a forward-only cursor. On success the
// returned streamer owns the statement (and transaction); closing it
// releases them in reverse order.
func (d *sqlDriver) Query(ctx context.Context, query string) (RowStreamer, error) {
	s := &sqlStreamer{}

	var (
		stmt *sql.Stmt
		err  error
	)
	if d.readOnlyTx {
		s.tx, err = d.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, NewConnectionError(fmt.Errorf("failed to begin transaction: %w", err))
		}
		stmt, err = s.tx.PrepareContext(ctx, query)
	} else {
		stmt, err = d.db.PrepareContext(ctx, query)
	}
	if err != nil {
		return nil, errors.Join(NewConnectionError(err), s.Close())
	}
	s.stmt = stmt

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, errors.Join(NewConnectionError(err), s.Close())
	}
	s.rows = rows
	return s, nil
}

func (d *sqlDriver) Close() error {
	return d.db.Close()
}

type sqlStreamer struct {
	tx   *sql.Tx
	stmt *sql.Stmt
	rows *sql.Rows
}

func (s *sqlStreamer) Columns() ([]Column, error) {
	types, err := s.rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	cols := make([]Column, len(types))
	for i, ct := range types {
		col := Column{Label: ct.Name(), TypeName: ct.DatabaseTypeName()}
		// A declared width such as SQLite's "VARCHAR(50)" wins over the
		// driver's length, which SQLite reports as unlimited for any text.
		if _, n, ok := typemap.SplitTypeName(col.TypeName); ok {
			col.Length = n
		} else if n, ok := ct.Length(); ok && n > 0 && n != math.MaxInt64 {
			col.Length = n
		}
		cols[i] = col
	}
	return cols, nil
}

func (s *sqlStreamer) Next() bool {
	return s.rows.Next()
}

func (s *sqlStreamer) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *sqlStreamer) Err() error {
	if err := s.rows.Err(); err != nil {
		return NewConnectionError(err)
	}
	return nil
}

// Close releases rows, statement and transaction, in that order. Every
// release is attempted; failures are joined.
func (s *sqlStreamer) Close() error {
	var errs []error
	if s.rows != nil {
		if err := s.rows.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cursor: %w", err))
		}
		s.rows = nil
	}
	if s.stmt != nil {
		if err := s.stmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close statement: %w", err))
		}
		s.stmt = nil
	}
	if s.tx != nil {
		// Read-only, nothing to commit.
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		}
		s.tx = nil
	}
	return errors.Join(errs...)
}
