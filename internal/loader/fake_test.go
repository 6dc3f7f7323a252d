package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sqlbridge/internal/dataset"
	"sqlbridge/internal/driver"
	"sqlbridge/internal/session"
)

type fakeDriver struct {
	name     string
	pingErr  error
	queryErr error
	streamer *fakeStreamer
	queries  []string
	closed   bool
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) Ping(context.Context) error { return d.pingErr }

func (d *fakeDriver) Query(_ context.Context, query string) (driver.RowStreamer, error) {
	d.queries = append(d.queries, query)
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	return d.streamer, nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

type fakeStreamer struct {
	cols []driver.Column
	rows [][]any
	// failAfter makes Next fail once that many rows have been returned.
	failAfter int
	failErr   error
	panicScan bool

	pos    int
	err    error
	closed bool
}

func (s *fakeStreamer) Columns() ([]driver.Column, error) { return s.cols, nil }

func (s *fakeStreamer) Next() bool {
	if s.failErr != nil && s.pos == s.failAfter {
		s.err = s.failErr
		return false
	}
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStreamer) Scan(dest ...any) error {
	if s.panicScan {
		panic("scan exploded")
	}
	row := s.rows[s.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, v := range row {
		p, ok := dest[i].(*any)
		if !ok {
			return errors.New("destination must be *any")
		}
		*p = v
	}
	return nil
}

func (s *fakeStreamer) Err() error { return s.err }

func (s *fakeStreamer) Close() error {
	s.closed = true
	return nil
}

type cell struct {
	idx int
	obs int64
}

// countingHost counts store calls per cell.
type countingHost struct {
	*dataset.Dataset
	stores map[cell]int
}

func newCountingHost() *countingHost {
	return &countingHost{Dataset: dataset.New(), stores: make(map[cell]int)}
}

func (h *countingHost) StoreNum(idx int, obs int64, val float64) error {
	h.stores[cell{idx, obs}]++
	return h.Dataset.StoreNum(idx, obs, val)
}

func (h *countingHost) StoreStr(idx int, obs int64, val string) error {
	h.stores[cell{idx, obs}]++
	return h.Dataset.StoreStr(idx, obs, val)
}

func newSession(t *testing.T, url string, opts ...session.Option) *session.Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.properties")
	require.NoError(t, os.WriteFile(path, []byte("user=tester\npassword=pw\n"), 0o600))
	s := session.New(opts...)
	_, err := s.Initialize(url, path)
	require.NoError(t, err)
	return s
}

func openWith(d *fakeDriver, opened *int) OpenFunc {
	return func(driver.Options) (driver.Driver, error) {
		if opened != nil {
			*opened++
		}
		return d, nil
	}
}
