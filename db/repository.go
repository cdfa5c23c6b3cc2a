package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"induction-portal/metrics"
	"induction-portal/models"
)

// Repository is the content store contract used by the rest of the portal.
type Repository interface {
	// Load returns a private copy of the document with every top-level key present.
	Load(ctx context.Context) (*models.Document, error)
	// Save persists the whole document and invalidates the read cache.
	Save(ctx context.Context, doc *models.Document) error
	// Mutate runs load, fn and save as one critical section.
	// Nothing is written when fn returns an error.
	Mutate(ctx context.Context, fn func(doc *models.Document) error) error
}

// Backend stores the serialized document.
type Backend interface {
	// Read returns the stored bytes or ErrNotExist.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	// Lock takes the cross-process writer lock. The returned func releases it.
	Lock(ctx context.Context) (func(), error)
	Close() error
}

// Store implements Repository over a Backend with a short-lived read cache.
type Store struct {
	backend  Backend
	defaults func() *models.Document
	ttl      time.Duration
	clock    func() time.Time
	log      *logrus.Entry
	sf       singleflight.Group

	mu        sync.RWMutex
	cached    *models.Document
	expiresAt time.Time
	gen       uint64

	writeMu sync.Mutex
}

var _ Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long a loaded document is served from cache.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithDefaults replaces the skeleton factory used for backfilling.
func WithDefaults(fn func() *models.Document) Option {
	return func(s *Store) {
		if fn != nil {
			s.defaults = fn
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the logger for store events.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) { s.log = log }
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		defaults: DefaultDocument,
		ttl:      2 * time.Second,
		clock:    time.Now,
		log:      logrus.WithField("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Repository.
func (s *Store) Load(ctx context.Context) (*models.Document, error) {
	if doc := s.fromCache(); doc != nil {
		metrics.DocumentCacheHits.Inc()
		return doc.Clone(), nil
	}
	metrics.DocumentCacheMisses.Inc()

	v, err, _ := s.sf.Do("document", func() (interface{}, error) {
		if doc := s.fromCache(); doc != nil {
			return doc, nil
		}
		gen := s.generation()

		doc, changed, err := s.read(ctx)
		if err != nil {
			return nil, err
		}
		if changed {
			doc, err = s.migrateLocked(ctx)
			if err != nil {
				if errors.Is(err, ErrSaveFailed) && doc != nil {
					s.log.WithError(err).Warn("serving migrated document without persisting it")
					return doc, nil
				}
				return nil, err
			}
			gen = s.generation()
		}
		s.setCache(doc, gen)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Document).Clone(), nil
}

// migrateLocked re-reads under the writer lock and persists the migration,
// so a concurrent Mutate is never overwritten by a stale backfill.
func (s *Store) migrateLocked(ctx context.Context) (*models.Document, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	unlock, err := s.backend.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire document lock: %w", err)
	}
	defer unlock()

	doc, changed, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.write(ctx, doc); err != nil {
			return doc, err
		}
		s.log.Info("document migrated and persisted")
	}
	return doc, nil
}

// Save implements Repository.
func (s *Store) Save(ctx context.Context, doc *models.Document) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	unlock, err := s.backend.Lock(ctx)
	if err != nil {
		return s.saveFailed(fmt.Errorf("acquire document lock: %w", err))
	}
	defer unlock()

	return s.write(ctx, doc)
}

// Mutate implements Repository. fn always sees the stored state, never the cache.
func (s *Store) Mutate(ctx context.Context, fn func(doc *models.Document) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	unlock, err := s.backend.Lock(ctx)
	if err != nil {
		return s.saveFailed(fmt.Errorf("acquire document lock: %w", err))
	}
	defer unlock()

	doc, _, err := s.read(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(ctx, doc)
}

// Invalidate drops the cached document.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) read(ctx context.Context) (*models.Document, bool, error) {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNotExist) {
		doc := s.defaults()
		for _, key := range doc.CategoriesList.Keys() {
			doc.EnsureCategory(key)
		}
		doc.Normalize()
		return doc, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read document: %w", err)
	}
	return Migrate(data, s.defaults)
}

func (s *Store) write(ctx context.Context, doc *models.Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return s.saveFailed(fmt.Errorf("encode document: %w", err))
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return s.saveFailed(err)
	}
	s.Invalidate()
	metrics.DocumentSaves.Inc()
	return nil
}

func (s *Store) saveFailed(err error) error {
	metrics.DocumentSaveFailures.Inc()
	s.log.WithError(err).Error("CRITICAL ERROR SAVING DATA")
	return fmt.Errorf("%w: %v", ErrSaveFailed, err)
}

func (s *Store) fromCache() *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached != nil && s.clock().Before(s.expiresAt) {
		return s.cached
	}
	return nil
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// setCache stores doc unless an invalidation happened since gen was read.
func (s *Store) setCache(doc *models.Document, gen uint64) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.cached = doc
	s.expiresAt = s.clock().Add(s.ttl)
}
