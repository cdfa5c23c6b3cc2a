package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileBackend stores the document as a JSON file. Writes go to a temp file
// in the same directory and are renamed into place. The writer lock is an
// advisory lock on "<path>.lock".
type FileBackend struct {
	path         string
	pollInterval time.Duration
}

// NewFileBackend returns a backend for the file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, pollInterval: 20 * time.Millisecond}
}

// Path returns the document path.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

func (f *FileBackend) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// Lock blocks until the advisory lock is held or ctx is done.
func (f *FileBackend) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, err
	}
	lf, err := os.OpenFile(f.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	for {
		err := tryLock(lf)
		if err == nil {
			break
		}
		if !errors.Is(err, errLocked) {
			lf.Close()
			return nil, err
		}
		select {
		case <-ctx.Done():
			lf.Close()
			return nil, ctx.Err()
		case <-time.After(f.pollInterval):
		}
	}
	return func() {
		unlock(lf)
		lf.Close()
	}, nil
}

func (f *FileBackend) Close() error { return nil }
