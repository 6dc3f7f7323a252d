package driver

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ConnectionError is a failure reported by the database layer while
// connecting or executing. VendorCode and SQLState are filled in when the
// driver provides them.
type ConnectionError struct {
	Message    string
	VendorCode int
	SQLState   string
	Err        error
}

func (e *ConnectionError) Error() string {
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps err, pulling vendor details out of MySQL and
// PostgreSQL server errors. An error that already is a ConnectionError is
// returned as is.
func NewConnectionError(err error) *ConnectionError {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr
	}

	ce := &ConnectionError{Message: err.Error(), Err: err}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		ce.VendorCode = int(myErr.Number)
		ce.SQLState = strings.TrimRight(string(myErr.SQLState[:]), "\x00")
		return ce
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		ce.SQLState = string(pqErr.Code)
		return ce
	}
	return ce
}

// IsDatabaseError reports whether err carries a server error from one of
// the SQL drivers.
func IsDatabaseError(err error) bool {
	var (
		connErr *ConnectionError
		myErr   *mysql.MySQLError
		pqErr   *pq.Error
	)
	return errors.As(err, &connErr) || errors.As(err, &myErr) || errors.As(err, &pqErr)
}
