package loader

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sqlbridge/internal/dataset"
	"sqlbridge/internal/driver"
	"sqlbridge/internal/session"
	"sqlbridge/internal/typemap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func peopleStreamer() *fakeStreamer {
	return &fakeStreamer{
		cols: []driver.Column{
			{Label: "id", TypeName: "INTEGER"},
			{Label: "name", TypeName: "VARCHAR", Length: 50},
		},
		rows: [][]any{
			{int64(1), "ann"},
			{int64(2), []byte("bo")},
			{int64(3), "cy"},
		},
	}
}

func TestExecuteQueryAppendsRows(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "mysql", streamer: peopleStreamer()}
	var out bytes.Buffer
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)), WithOutput(&out))

	res, err := l.ExecuteQuery(context.Background(), "  SELECT id, name FROM people  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT id, name FROM people"}, fd.queries)

	assert.Equal(t, int64(3), res.RowsLoaded)
	assert.Equal(t, int64(1), res.FirstObs)
	assert.Equal(t, int64(3), res.LastObs)
	assert.NotEmpty(t, res.QueryID)
	require.Len(t, res.Columns, 2)

	assert.Equal(t, []dataset.VarInfo{
		{Name: "id", Kind: dataset.Int},
		{Name: "name", Kind: dataset.Str, Width: 50},
	}, host.Vars())
	assert.Equal(t, int64(3), host.ObsTotal())
	assert.Equal(t, []any{int64(1), "ann"}, host.Row(1))
	assert.Equal(t, []any{int64(2), "bo"}, host.Row(2))
	assert.Equal(t, []any{int64(3), "cy"}, host.Row(3))

	assert.True(t, fd.streamer.closed)
	assert.True(t, fd.closed)

	text := out.String()
	assert.Contains(t, text, "Successfully connected to the database, running query...")
	assert.Contains(t, text, "Added new Integer variable 'id' to dataset.")
	assert.Contains(t, text, "Added new Str variable 'name' of length 50 to dataset.")
	assert.Contains(t, text, "Retrieved 3 rows.")
	assert.Contains(t, text, "Observation count set to: 3")
	assert.Contains(t, text, "Data loaded successfully into observations 1 to 3")
}

func TestExecuteQueryMySQLTextWithoutLength(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "mysql", streamer: &fakeStreamer{
		cols: []driver.Column{{Label: "name", TypeName: "VARCHAR"}},
		rows: [][]any{{[]byte("a name longer than any guess")}},
	}}
	var out bytes.Buffer
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)), WithOutput(&out))

	_, err := l.ExecuteQuery(context.Background(), "SELECT name FROM people")
	require.NoError(t, err)
	assert.Equal(t, []dataset.VarInfo{{Name: "name", Kind: dataset.StrL}}, host.Vars())
	assert.Equal(t, "a name longer than any guess", host.Value(0, 1))
	assert.Contains(t, out.String(), "Added new StrL variable 'name' to dataset.")
}

func TestExecuteQueryNullLeavesCellUnwritten(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "postgres", streamer: &fakeStreamer{
		cols: []driver.Column{{Label: "body", TypeName: "CLOB"}},
		rows: [][]any{{"first"}, {nil}, {"third"}},
	}}
	l := New(newSession(t, "postgres://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	res, err := l.ExecuteQuery(context.Background(), "SELECT body FROM docs")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsLoaded)

	idx, ok := host.VarIndex("body")
	require.True(t, ok)
	info, _ := host.VarInfo(idx)
	assert.Equal(t, dataset.StrL, info.Kind)

	assert.Equal(t, 1, host.stores[cell{idx, 1}])
	assert.Zero(t, host.stores[cell{idx, 2}])
	assert.Equal(t, 1, host.stores[cell{idx, 3}])
	assert.Equal(t, "first", host.Value(idx, 1))
	assert.Nil(t, host.Value(idx, 2))
	assert.Equal(t, "third", host.Value(idx, 3))
}

func TestExecuteQueryNullForEveryKind(t *testing.T) {
	cols := []driver.Column{
		{Label: "a", TypeName: "BIGINT"},
		{Label: "b", TypeName: "INTEGER"},
		{Label: "c", TypeName: "BOOLEAN"},
		{Label: "d", TypeName: "DECIMAL"},
		{Label: "e", TypeName: "REAL"},
		{Label: "f", TypeName: "CHAR", Length: 4},
		{Label: "g", TypeName: "TEXT"},
		{Label: "h", TypeName: "DATE"},
		{Label: "i", TypeName: "TIMESTAMP WITH TIME ZONE"},
	}
	host := newCountingHost()
	fd := &fakeDriver{name: "postgres", streamer: &fakeStreamer{
		cols: cols,
		rows: [][]any{make([]any, len(cols))},
	}}
	l := New(newSession(t, "postgres://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	res, err := l.ExecuteQuery(context.Background(), "SELECT * FROM empty_row")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsLoaded)
	assert.Len(t, host.Vars(), len(cols))
	assert.Empty(t, host.stores)
}

func TestExecuteQueryUnsupportedTypeAbortsWholeQuery(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "mysql", streamer: &fakeStreamer{
		cols: []driver.Column{
			{Label: "id", TypeName: "INT"},
			{Label: "shape", TypeName: "GEOMETRY"},
		},
		rows: [][]any{{int64(1), []byte{0x01}}},
	}}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	_, err := l.ExecuteQuery(context.Background(), "SELECT id, shape FROM places")
	var ue *typemap.UnsupportedColumnTypeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "shape", ue.Label)

	assert.Zero(t, host.VarCount())
	assert.Zero(t, host.ObsTotal())
	assert.True(t, fd.streamer.closed)
	assert.True(t, fd.closed)
}

func TestExecuteQueryNotInitialized(t *testing.T) {
	opened := 0
	fd := &fakeDriver{name: "mysql", streamer: peopleStreamer()}
	s := session.New()
	_, err := s.Initialize("localhost:3306/db", "unused.properties")
	require.ErrorIs(t, err, session.ErrInvalidURL)

	l := New(s, newCountingHost(), WithOpenFunc(openWith(fd, &opened)))
	_, err = l.ExecuteQuery(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, session.ErrNotInitialized)
	assert.Zero(t, opened)
}

func TestExecuteQueryEmptyQuery(t *testing.T) {
	l := New(newSession(t, "mysql://localhost/db"), newCountingHost())
	_, err := l.ExecuteQuery(context.Background(), "   ")
	assert.ErrorIs(t, err, session.ErrInvalidArguments)
}

func TestExecuteQueryReusesVariables(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "mysql", streamer: peopleStreamer()}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	first, err := l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	require.NoError(t, err)

	fd.streamer = peopleStreamer()
	second, err := l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	require.NoError(t, err)

	assert.Equal(t, 2, host.VarCount())
	for i := range first.Columns {
		assert.False(t, first.Columns[i].Reused)
		assert.True(t, second.Columns[i].Reused)
		assert.Equal(t, first.Columns[i].Index, second.Columns[i].Index)
	}

	assert.Equal(t, int64(3), second.RowsLoaded)
	assert.Equal(t, int64(4), second.FirstObs)
	assert.Equal(t, int64(6), second.LastObs)
	assert.Equal(t, int64(6), host.ObsTotal())
	assert.Equal(t, []any{int64(1), "ann"}, host.Row(4))
}

func TestExecuteQueryAppendsAfterExistingObservations(t *testing.T) {
	host := newCountingHost()
	_, err := host.AddVar("other", dataset.Double, 0)
	require.NoError(t, err)
	require.NoError(t, host.SetObsTotal(5))

	fd := &fakeDriver{name: "mysql", streamer: peopleStreamer()}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	res, err := l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsLoaded)
	assert.Equal(t, int64(6), res.FirstObs)
	assert.Equal(t, int64(8), res.LastObs)
	assert.Equal(t, int64(8), host.ObsTotal())

	idx, _ := host.VarIndex("id")
	assert.Nil(t, host.Value(idx, 5))
	assert.Equal(t, int64(1), host.Value(idx, 6))
}

func TestExecuteQueryTypeConflict(t *testing.T) {
	host := newCountingHost()
	_, err := host.AddVar("id", dataset.Str, 5)
	require.NoError(t, err)

	fd := &fakeDriver{name: "mysql", streamer: peopleStreamer()}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	_, err = l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	assert.ErrorIs(t, err, ErrColumnTypeConflict)
	assert.Equal(t, 1, host.VarCount())
	assert.Zero(t, host.ObsTotal())
}

func TestExecuteQueryStrLAcceptsText(t *testing.T) {
	host := newCountingHost()
	_, err := host.AddVar("name", dataset.StrL, 0)
	require.NoError(t, err)

	fd := &fakeDriver{name: "mysql", streamer: peopleStreamer()}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	res, err := l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	require.NoError(t, err)
	assert.True(t, res.Columns[1].Reused)
	assert.Equal(t, dataset.StrL, res.Columns[1].Kind)
	assert.Equal(t, "cy", host.Value(res.Columns[1].Index, 3))
}

func TestExecuteQueryDuplicateLabels(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "mysql", streamer: &fakeStreamer{
		cols: []driver.Column{
			{Label: "x", TypeName: "INT"},
			{Label: "x", TypeName: "INT"},
			{Label: "order date", TypeName: "DATE"},
		},
		rows: [][]any{{int64(1), int64(2), "2024-01-31"}},
	}}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	res, err := l.ExecuteQuery(context.Background(), "SELECT a.x, b.x, a.`order date` FROM a JOIN b")
	require.NoError(t, err)
	assert.Equal(t, "x", res.Columns[0].Name)
	assert.Equal(t, "x_2", res.Columns[1].Name)
	assert.Equal(t, "order_date", res.Columns[2].Name)
	assert.Equal(t, []any{int64(1), int64(2), "2024-01-31"}, host.Row(1))
}

func TestExecuteQueryValueTransfer(t *testing.T) {
	zone := time.FixedZone("", 2*3600)
	host := newCountingHost()
	fd := &fakeDriver{name: "postgres", streamer: &fakeStreamer{
		cols: []driver.Column{
			{Label: "big", TypeName: "INT8"},
			{Label: "flag", TypeName: "BOOLEAN"},
			{Label: "bits", TypeName: "BIT"},
			{Label: "amount", TypeName: "NUMERIC"},
			{Label: "ratio", TypeName: "FLOAT4"},
			{Label: "day", TypeName: "DATE"},
			{Label: "at", TypeName: "TIME"},
			{Label: "at_tz", TypeName: "TIMETZ"},
			{Label: "ts", TypeName: "TIMESTAMP"},
			{Label: "ts_tz", TypeName: "TIMESTAMPTZ"},
		},
		rows: [][]any{{
			int64(1) << 40,
			true,
			[]byte{1},
			[]byte("12.50"),
			float32(0.5),
			time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			"10:11:12.5",
			"10:11:12.25+02",
			time.Date(2024, 3, 5, 13, 4, 5, 6000, time.UTC),
			time.Date(2024, 3, 5, 13, 4, 5, 123456000, zone),
		}},
	}}
	l := New(newSession(t, "postgres://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	_, err := l.ExecuteQuery(context.Background(), "SELECT * FROM mixed")
	require.NoError(t, err)

	kinds := make([]dataset.Kind, 0, host.VarCount())
	for _, v := range host.Vars() {
		kinds = append(kinds, v.Kind)
	}
	assert.Equal(t, []dataset.Kind{
		dataset.Long, dataset.Byte, dataset.Byte, dataset.Double, dataset.Float,
		dataset.Str, dataset.Str, dataset.Str, dataset.Str, dataset.Str,
	}, kinds)

	assert.Equal(t, []any{
		int64(1) << 40,
		int64(1),
		int64(1),
		12.5,
		0.5,
		"2024-03-05",
		"10:11:12.500000",
		"10:11:12.250000+0200",
		"2024-03-05 13:04:05.000006",
		"2024-03-05T13:04:05.123456+0200",
	}, host.Row(1))
}

func TestExecuteQueryRendersZonedValuesInLocation(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "postgres", streamer: &fakeStreamer{
		cols: []driver.Column{{Label: "ts_tz", TypeName: "TIMESTAMPTZ"}},
		rows: [][]any{{time.Date(2024, 3, 5, 13, 0, 0, 0, time.FixedZone("", 2*3600))}},
	}}
	s := newSession(t, "postgres://localhost/db", session.WithLocation(time.UTC))
	l := New(s, host, WithOpenFunc(openWith(fd, nil)))

	_, err := l.ExecuteQuery(context.Background(), "SELECT ts_tz FROM events")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T11:00:00.000000+0000", host.Value(0, 1))
}

func TestExecuteQueryMidStreamFailureKeepsLoadedRows(t *testing.T) {
	host := newCountingHost()
	st := peopleStreamer()
	st.failAfter = 1
	st.failErr = driver.NewConnectionError(errors.New("connection reset by peer"))
	fd := &fakeDriver{name: "mysql", streamer: st}
	l := New(newSession(t, "mysql://localhost/db"), host, WithOpenFunc(openWith(fd, nil)))

	_, err := l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	var ce *driver.ConnectionError
	require.ErrorAs(t, err, &ce)

	assert.Equal(t, int64(1), host.ObsTotal())
	assert.Equal(t, []any{int64(1), "ann"}, host.Row(1))
	assert.True(t, st.closed)
	assert.True(t, fd.closed)
}

func TestExecuteQueryMalformedValue(t *testing.T) {
	host := newCountingHost()
	fd := &fakeDriver{name: "sqlite", streamer: &fakeStreamer{
		cols: []driver.Column{{Label: "day", TypeName: "DATE"}},
		rows: [][]any{{"2024-01-01"}, {"not a date"}},
	}}
	l := New(newSession(t, "sqlite:///tmp/x.db"), host, WithOpenFunc(openWith(fd, nil)))

	_, err := l.ExecuteQuery(context.Background(), "SELECT day FROM t")
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.NotEmpty(t, ee.Stack)
	assert.Contains(t, ee.Error(), "row 2, column day")
	assert.Equal(t, "2024-01-01", host.Value(0, 1))
}

func TestExecuteQueryConnectionFailure(t *testing.T) {
	fd := &fakeDriver{name: "mysql", pingErr: driver.NewConnectionError(errors.New("dial tcp: connection refused"))}
	var out bytes.Buffer
	l := New(newSession(t, "mysql://localhost/db"), newCountingHost(), WithOpenFunc(openWith(fd, nil)), WithOutput(&out))

	_, err := l.ExecuteQuery(context.Background(), "SELECT 1")
	var ce *driver.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.True(t, fd.closed)
	assert.Empty(t, fd.queries)
	assert.NotContains(t, out.String(), "Successfully connected")
}

func TestExecuteQueryRecoversPanic(t *testing.T) {
	st := peopleStreamer()
	st.panicScan = true
	fd := &fakeDriver{name: "mysql", streamer: st}
	s := newSession(t, "mysql://localhost/db")
	l := New(s, newCountingHost(), WithOpenFunc(openWith(fd, nil)))

	_, err := l.ExecuteQuery(context.Background(), "SELECT id, name FROM people")
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Error(), "scan exploded")
	assert.True(t, st.closed)
	assert.True(t, fd.closed)

	// The session is released again.
	_, release, err := s.Acquire()
	require.NoError(t, err)
	release()
}

func TestExecuteQueryConcurrentUseRejected(t *testing.T) {
	s := newSession(t, "mysql://localhost/db")
	_, release, err := s.Acquire()
	require.NoError(t, err)
	defer release()

	l := New(s, newCountingHost(), WithOpenFunc(openWith(&fakeDriver{name: "mysql"}, nil)))
	_, err = l.ExecuteQuery(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, session.ErrQueryInProgress)
}

func TestExecuteQuerySQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE people (id INTEGER, name VARCHAR(50), note TEXT, score REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO people VALUES (1, 'ann', 'likes tea', 1.5), (2, 'bo', NULL, NULL), (3, 'cy', 'x', 3)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	host := dataset.New()
	var out bytes.Buffer
	l := New(newSession(t, "sqlite://"+path), host, WithOutput(&out))

	res, err := l.ExecuteQuery(context.Background(), "SELECT id, name, note, score FROM people ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsLoaded)

	assert.Equal(t, []dataset.VarInfo{
		{Name: "id", Kind: dataset.Int},
		{Name: "name", Kind: dataset.Str, Width: 50},
		{Name: "note", Kind: dataset.StrL},
		{Name: "score", Kind: dataset.Float},
	}, host.Vars())

	assert.Equal(t, []any{int64(1), "ann", "likes tea", 1.5}, host.Row(1))
	assert.Equal(t, []any{int64(2), "bo", nil, nil}, host.Row(2))
	assert.Equal(t, []any{int64(3), "cy", "x", 3.0}, host.Row(3))
	assert.Contains(t, out.String(), "Data loaded successfully into observations 1 to 3")
}
