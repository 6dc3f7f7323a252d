package exporter

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"sqlbridge/internal/storage"
)

// Exporter writes a dataset to a storage provider:
// Source -> Encoder -> [Gzip?] -> Storage.
type Exporter struct {
	storage storage.Provider
	useGzip bool
}

func New(store storage.Provider, useGzip bool) *Exporter {
	return &Exporter{storage: store, useGzip: useGzip}
}

// Key returns the storage key for an export. An empty name gets a random
// one under exports/.
func (e *Exporter) Key(name string, format Format) string {
	if name == "" {
		name = "exports/" + uuid.New().String()
	}
	if ext := "." + format.Extension(); !strings.EqualFold(path.Ext(name), ext) {
		name += ext
	}
	if e.useGzip {
		name += ".gz"
	}
	return name
}

// Export encodes src in format and stores it under name.
func (e *Exporter) Export(ctx context.Context, src Source, format Format, name string) (*ExportResult, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	key := e.Key(name, format)

	storageWriter, errChan := e.storage.StreamToFile(ctx, key)
	if storageWriter == nil {
		return nil, fmt.Errorf("open storage: %w", <-errChan)
	}

	var finalWriter io.Writer = storageWriter
	var gw *gzip.Writer
	if e.useGzip {
		gw = gzip.NewWriter(storageWriter)
		finalWriter = gw
	}

	encoder, err := NewEncoder(format, finalWriter)
	if err != nil {
		abortErr := discard(storageWriter, err)
		<-errChan
		return nil, errors.Join(err, abortErr)
	}
	stats, exportErr := StreamDataset(ctx, src, encoder)

	// Close in order: encoder footer, gzip footer, storage.
	encoderCloseErr := encoder.Close()
	var gzipCloseErr error
	if gw != nil {
		gzipCloseErr = gw.Close()
	}
	var storageCloseErr error
	if exportErr != nil {
		storageCloseErr = discard(storageWriter, exportErr)
	} else {
		storageCloseErr = storageWriter.Close()
	}
	uploadErr := <-errChan

	if exportErr != nil {
		return nil, fmt.Errorf("export failed: %w", exportErr)
	}
	if encoderCloseErr != nil {
		return nil, fmt.Errorf("encoder close failed: %w", encoderCloseErr)
	}
	if gzipCloseErr != nil {
		return nil, fmt.Errorf("gzip close failed: %w", gzipCloseErr)
	}
	if storageCloseErr != nil {
		return nil, fmt.Errorf("storage close failed: %w", storageCloseErr)
	}
	if uploadErr != nil {
		return nil, fmt.Errorf("upload failed: %w", uploadErr)
	}

	stats.Key = key
	stats.Location = e.storage.GetDownloadURL(key)
	slog.Info("Export completed", "key", key, "format", format, "rows", stats.RowsProcessed, "duration", stats.Duration)
	return stats, nil
}

// discard drops a partially written object, closing it when the provider
// cannot abort.
func discard(w io.WriteCloser, cause error) error {
	if a, ok := w.(storage.Aborter); ok {
		return a.Abort(cause)
	}
	return w.Close()
}
