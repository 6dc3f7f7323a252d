package exporter

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"

	"sqlbridge/internal/dataset"
)

// CSVEncoder wraps encoding/csv behind a 64KB buffer.
type CSVEncoder struct {
	w   *csv.Writer
	buf *bufio.Writer
}

// NewCSVEncoder creates a new CSV encoder that writes to the provided io.Writer.
func NewCSVEncoder(w io.Writer) *CSVEncoder {
	buf := bufio.NewWriterSize(w, 64*1024)
	return &CSVEncoder{
		w:   csv.NewWriter(buf),
		buf: buf,
	}
}

// WriteHeader writes the variable names as the header row.
func (e *CSVEncoder) WriteHeader(vars []dataset.VarInfo) error {
	return e.w.Write(varNames(vars))
}

// WriteRow writes one observation. Missing cells are empty fields.
func (e *CSVEncoder) WriteRow(values []any) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = formatCell(v, true)
	}
	return e.w.Write(record)
}

// Flush ensures all data is written to the underlying writer.
func (e *CSVEncoder) Flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return e.buf.Flush()
}

// Error returns any error stored in the CSV writer.
func (e *CSVEncoder) Error() error {
	return e.w.Error()
}

// Close flushes and satisfies io.Closer.
func (e *CSVEncoder) Close() error {
	return e.Flush()
}

func varNames(vars []dataset.VarInfo) []string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return names
}

// formatCell renders a dataset value as text. With escape set, strings
// that a spreadsheet would read as a formula get a leading quote.
func formatCell(val any, escape bool) string {
	switch v := val.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		if escape {
			return escapeFormula(v)
		}
		return v
	default:
		return ""
	}
}

// escapeFormula mitigates CSV injection.
func escapeFormula(s string) string {
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			return "'" + s
		}
	}
	return s
}
