package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

var badgerDocumentKey = []byte("portal/document")

// BadgerConfig holds configuration for the embedded badger backend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory disables disk persistence. Useful for testing.
	InMemory bool
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration
}

// BadgerBackend stores the document under a single key.
type BadgerBackend struct {
	db   *badger.DB
	stop chan struct{}
}

// OpenBadger opens the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).
		WithLogger(logrus.WithField("component", "badger"))

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	b := &BadgerBackend{db: bdb, stop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go b.runGC(cfg.GCInterval)
	}
	return b, nil
}

func (b *BadgerBackend) Read(_ context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerDocumentKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("badger read: %w", err)
	}
	return data, nil
}

func (b *BadgerBackend) Write(_ context.Context, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerDocumentKey, data)
	})
	if err != nil {
		return fmt.Errorf("badger write: %w", err)
	}
	return nil
}

// Lock is a no-op: badger already holds an exclusive directory lock for the process.
func (b *BadgerBackend) Lock(_ context.Context) (func(), error) {
	return func() {}, nil
}

func (b *BadgerBackend) Close() error {
	close(b.stop)
	return b.db.Close()
}

func (b *BadgerBackend) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			for {
				// RunValueLogGC returns nil while there is more to collect.
				if err := b.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}
