package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"sqlbridge/internal/driver"
)

// ErrColumnTypeConflict is returned when a result column maps onto an
// existing variable whose kind cannot hold it.
var ErrColumnTypeConflict = errors.New("column conflicts with existing variable")

// ExecutionError is a failure outside the database layer, such as a value
// that cannot be converted. Stack is captured where it was raised.
type ExecutionError struct {
	Err   error
	Stack []byte
}

func newExecutionError(format string, args ...any) *ExecutionError {
	return &ExecutionError{Err: fmt.Errorf(format, args...), Stack: debug.Stack()}
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// errorAttrs returns log attributes for err, including vendor details for
// database errors.
func errorAttrs(err error) []any {
	attrs := []any{"error", err}
	var ce *driver.ConnectionError
	if errors.As(err, &ce) {
		if ce.SQLState != "" {
			attrs = append(attrs, "sql_state", ce.SQLState)
		}
		if ce.VendorCode != 0 {
			attrs = append(attrs, "vendor_code", ce.VendorCode)
		}
	}
	return attrs
}

func closeLogged(logger *slog.Logger, what string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logger.Warn("Failed to release "+what, "error", err)
	}
}
