package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider stores exports below a base directory.
type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory %s: %w", basePath, err)
	}
	return &LocalProvider{basePath: basePath}, nil
}

// path resolves key below basePath, rejecting keys that escape it.
func (p *LocalProvider) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(p.basePath, clean), nil
}

func (p *LocalProvider) StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	fullPath, err := p.path(key)
	if err != nil {
		return failed(err)
	}

	// Ensure subdirectories exist if key contains them
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failed(fmt.Errorf("failed to create directory %s: %w", dir, err))
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return failed(fmt.Errorf("failed to create file %s: %w", fullPath, err))
	}

	errChan := make(chan error, 1)
	return &localWriter{f: f, errChan: errChan, path: fullPath}, errChan
}

func (p *LocalProvider) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := p.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

func (p *LocalProvider) GetDownloadURL(key string) string {
	fullPath := filepath.Join(p.basePath, filepath.FromSlash(key))
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		abs = fullPath
	}
	return "file://" + filepath.ToSlash(abs)
}

type localWriter struct {
	f       *os.File
	errChan chan error
	path    string
	done    bool
}

func (w *localWriter) Write(p []byte) (n int, err error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	err := w.f.Close()
	if err == nil {
		slog.Info("Local file write completed", "path", w.path)
	}
	w.errChan <- err
	close(w.errChan)
	return err
}

// Abort closes and removes the partial file.
func (w *localWriter) Abort(cause error) error {
	if w.done {
		return nil
	}
	w.done = true
	err := errors.Join(w.f.Close(), os.Remove(w.path))
	slog.Warn("Local file write aborted", "path", w.path, "cause", cause)
	w.errChan <- cause
	close(w.errChan)
	return err
}
