package storage

import (
	"context"
	"fmt"
	"io"

	"sqlbridge/internal/config"
)

// Provider defines the interface for storing exported data.
type Provider interface {
	// StreamToFile returns a WriteCloser. Data written to it is streamed to the storage destination.
	// The key is the relative path/filename for the object.
	// The returned channel receives a single error (or nil) when the storage operation completes.
	// If the destination cannot be opened the writer is nil and the channel carries the error.
	StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// OpenFile opens the stored file for reading.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetDownloadURL returns a viewable/downloadable URL for the stored item.
	GetDownloadURL(key string) string
}

// Aborter is implemented by writers that can discard a partial upload.
// Abort is used instead of Close and completes the error channel.
type Aborter interface {
	Abort(err error) error
}

// NewProvider builds the provider selected by cfg.StorageType.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.StorageType {
	case "local", "":
		local, err := NewLocalProvider(cfg.LocalStoragePath)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
		return NewS3Provider(NewS3Client(cfg), cfg.S3Bucket), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

func failed(err error) (io.WriteCloser, <-chan error) {
	errChan := make(chan error, 1)
	errChan <- err
	close(errChan)
	return nil, errChan
}
