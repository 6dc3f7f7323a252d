package exporter

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"

	"sqlbridge/internal/dataset"
)

// maxExcelRows is the worksheet row limit, header included.
const maxExcelRows = 1048576

// ExcelEncoder implements RowEncoder for Excel (.xlsx) files.
// It uses excelize.StreamWriter for efficient writing of large files.
type ExcelEncoder struct {
	f      *excelize.File
	sw     *excelize.StreamWriter
	w      io.Writer
	rowIdx int
	err    error
	done   bool
}

// NewExcelEncoder creates a new Excel encoder with a single "data" sheet.
func NewExcelEncoder(w io.Writer) *ExcelEncoder {
	f := excelize.NewFile()
	const sheet = "data"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return &ExcelEncoder{f: f, err: err}
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return &ExcelEncoder{f: f, err: err}
	}
	return &ExcelEncoder{
		f:      f,
		sw:     sw,
		w:      w,
		rowIdx: 1,
	}
}

func (e *ExcelEncoder) WriteHeader(vars []dataset.VarInfo) error {
	names := varNames(vars)
	row := make([]any, len(names))
	for i, name := range names {
		row[i] = name
	}
	return e.setRow(row)
}

// WriteRow keeps numbers numeric; missing cells are left empty.
func (e *ExcelEncoder) WriteRow(values []any) error {
	row := make([]any, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			row[i] = escapeFormula(s)
			continue
		}
		row[i] = v
	}
	return e.setRow(row)
}

func (e *ExcelEncoder) setRow(row []any) error {
	if e.err != nil {
		return e.err
	}
	if e.rowIdx > maxExcelRows {
		e.err = errors.New("excel row limit exceeded (1,048,576 rows)")
		return e.err
	}

	cell, err := excelize.CoordinatesToCellName(1, e.rowIdx)
	if err != nil {
		e.err = err
		return err
	}
	if err := e.sw.SetRow(cell, row); err != nil {
		e.err = err
		return err
	}
	e.rowIdx++
	return nil
}

// Flush is a no-op until Close: the workbook is only valid once complete.
func (e *ExcelEncoder) Flush() error {
	return e.err
}

func (e *ExcelEncoder) Error() error {
	return e.err
}

// Close finishes the sheet and writes the workbook.
func (e *ExcelEncoder) Close() error {
	if e.done {
		return e.err
	}
	e.done = true
	defer e.f.Close()

	if e.err != nil {
		return e.err
	}
	if err := e.sw.Flush(); err != nil {
		e.err = err
		return err
	}
	if err := e.f.Write(e.w); err != nil {
		e.err = err
	}
	return e.err
}
