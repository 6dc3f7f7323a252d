package exporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"sqlbridge/internal/dataset"
)

// JSONEncoder implements RowEncoder for JSON Lines format.
// Each observation is exported as a JSON object on a new line; missing
// cells are null.
type JSONEncoder struct {
	w       *bufio.Writer
	enc     *json.Encoder
	columns []string
	err     error
}

// NewJSONEncoder creates a new JSON Lines encoder.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	buf := bufio.NewWriterSize(w, 64*1024)
	return &JSONEncoder{w: buf, enc: json.NewEncoder(buf)}
}

// WriteHeader captures the variable names to be used as JSON keys.
func (e *JSONEncoder) WriteHeader(vars []dataset.VarInfo) error {
	e.columns = varNames(vars)
	return nil
}

func (e *JSONEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}

	row := make(map[string]any, len(values))
	for i, v := range values {
		key := fmt.Sprintf("column_%d", i+1)
		if i < len(e.columns) {
			key = e.columns[i]
		}
		row[key] = v
	}

	// Encode terminates each object with a newline.
	if err := e.enc.Encode(row); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *JSONEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.w.Flush(); err != nil {
		e.err = err
	}
	return e.err
}

func (e *JSONEncoder) Error() error {
	return e.err
}

func (e *JSONEncoder) Close() error {
	return e.Flush()
}
