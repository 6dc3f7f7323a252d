package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sqlbridge/internal/dataset"
)

// Source is the dataset side of an export. *dataset.Dataset implements it.
type Source interface {
	Vars() []dataset.VarInfo
	ObsTotal() int64
	Row(obs int64) []any
}

// ExportResult contains stats about the export.
type ExportResult struct {
	RowsProcessed int64
	Duration      time.Duration
	// Key and Location are set by Exporter.Export.
	Key      string
	Location string
}

// ErrEmptyDataset is returned when there is nothing to export.
var ErrEmptyDataset = errors.New("dataset has no variables")

// StreamDataset writes every observation of src to encoder in order. It
// does not close the encoder.
func StreamDataset(ctx context.Context, src Source, encoder RowEncoder) (*ExportResult, error) {
	start := time.Now()

	vars := src.Vars()
	if len(vars) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := encoder.WriteHeader(vars); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	total := src.ObsTotal()
	var rowCount int64
	for obs := int64(1); obs <= total; obs++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := encoder.WriteRow(src.Row(obs)); err != nil {
			return nil, fmt.Errorf("failed to write observation %d: %w", obs, err)
		}
		rowCount++
	}

	if err := encoder.Error(); err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}

	return &ExportResult{
		RowsProcessed: rowCount,
		Duration:      time.Since(start),
	}, nil
}
