package exporter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"sqlbridge/internal/dataset"
)

// RowEncoder defines a common interface for different export formats (CSV, JSON, Excel, PDF, Arrow).
// It allows the exporter to be agnostic of the underlying output format.
type RowEncoder interface {
	// WriteHeader receives the variable declarations.
	// This should be called exactly once before any rows are written.
	WriteHeader(vars []dataset.VarInfo) error

	// WriteRow writes one observation. Values are int64, float64, string
	// or nil for a missing cell, one per variable.
	WriteRow(values []any) error

	// Flush ensures all buffered data is written to the underlying writer.
	Flush() error

	// Error returns the first error that occurred during encoding, if any.
	Error() error

	// Close flushes the encoder and releases any resources.
	// Formats with a footer (Excel, PDF, Arrow) write it here, once.
	io.Closer
}

// ErrUnknownFormat is returned for an export format that is not supported.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
	FormatArrow Format = "arrow"
)

// Formats lists the supported formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatExcel, FormatPDF, FormatArrow}

// ParseFormat accepts a format name; "xlsx" is an alias of excel.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "xlsx" {
		return FormatExcel, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Valid reports whether f is one of Formats.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatJSON:
		return "jsonl"
	default:
		return string(f)
	}
}

// NewEncoder returns the encoder for format, writing to w.
func NewEncoder(format Format, w io.Writer) (RowEncoder, error) {
	switch format {
	case FormatCSV:
		return NewCSVEncoder(w), nil
	case FormatJSON:
		return NewJSONEncoder(w), nil
	case FormatExcel:
		return NewExcelEncoder(w), nil
	case FormatPDF:
		return NewPDFEncoder(w), nil
	case FormatArrow:
		return NewArrowEncoder(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
