package db

import (
	"context"
	"sync"
)

// MemoryBackend keeps the document in memory. Used by tests and demos.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	writes   int
	failWith error
}

// NewMemoryBackend returns a backend holding data; nil means no document yet.
func NewMemoryBackend(data []byte) *MemoryBackend {
	return &MemoryBackend{data: data}
}

func (m *MemoryBackend) Read(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *MemoryBackend) Lock(_ context.Context) (func(), error) {
	return func() {}, nil
}

func (m *MemoryBackend) Close() error { return nil }

// Writes returns how many successful writes happened.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Data returns the stored bytes.
func (m *MemoryBackend) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// FailWrites makes every following write return err; nil restores writes.
func (m *MemoryBackend) FailWrites(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}
