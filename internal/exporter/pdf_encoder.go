package exporter

import (
	"io"

	"github.com/go-pdf/fpdf"

	"sqlbridge/internal/dataset"
)

// PDFEncoder implements RowEncoder for PDF generation.
// It creates a simple grid layout for exported data.
// WARNING: PDF generation is memory intensive and slower than CSV/JSON.
type PDFEncoder struct {
	pdf      *fpdf.Fpdf
	w        io.Writer
	colWidth float64
	header   []string
	done     bool
}

// NewPDFEncoder creates a new PDF encoder.
func NewPDFEncoder(w io.Writer) *PDFEncoder {
	pdf := fpdf.New("L", "mm", "A4", "") // Landscape, mm, A4
	pdf.SetFont("Arial", "", 10)
	return &PDFEncoder{pdf: pdf, w: w}
}

// WriteHeader lays out equal-width columns and writes the header row.
// The header is repeated on every page.
func (e *PDFEncoder) WriteHeader(vars []dataset.VarInfo) error {
	e.header = varNames(vars)

	pageWidth, _ := e.pdf.GetPageSize()
	left, _, right, _ := e.pdf.GetMargins()
	if len(e.header) > 0 {
		e.colWidth = (pageWidth - left - right) / float64(len(e.header))
	}

	e.pdf.SetHeaderFunc(func() {
		e.pdf.SetFont("Arial", "B", 10)
		for _, col := range e.header {
			e.pdf.CellFormat(e.colWidth, 7, col, "1", 0, "C", false, 0, "")
		}
		e.pdf.Ln(-1)
		e.pdf.SetFont("Arial", "", 10)
	})
	e.pdf.AddPage()
	return e.pdf.Error()
}

// WriteRow writes a single row of data. Missing cells show ".".
func (e *PDFEncoder) WriteRow(values []any) error {
	if err := e.pdf.Error(); err != nil {
		return err
	}
	for _, v := range values {
		str := "."
		if v != nil {
			str = formatCell(v, false)
		}
		e.pdf.CellFormat(e.colWidth, 7, str, "1", 0, "L", false, 0, "")
	}
	e.pdf.Ln(-1)
	return e.pdf.Error()
}

// Flush is a no-op; the document is written on Close.
func (e *PDFEncoder) Flush() error {
	return e.pdf.Error()
}

// Error returns any stored error.
func (e *PDFEncoder) Error() error {
	return e.pdf.Error()
}

// Close writes the document to the underlying writer.
func (e *PDFEncoder) Close() error {
	if e.done {
		return e.pdf.Error()
	}
	e.done = true
	return e.pdf.Output(e.w)
}
