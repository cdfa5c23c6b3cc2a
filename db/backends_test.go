package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"induction-portal/models"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "content_data.json")
	backend := NewFileBackend(path)
	ctx := context.Background()

	_, err := backend.Read(ctx)
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, backend.Write(ctx, []byte(`{"home":{}}`)))
	data, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"home":{}}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files are cleaned up")
	}
}

func TestFileBackend_LockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	a := NewFileBackend(path)
	b := NewFileBackend(path)

	unlock, err := a.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = b.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlockB, err := b.Lock(context.Background())
	require.NoError(t, err)
	unlockB()
}

func TestFileBackend_StoreEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store := NewStore(NewFileBackend(path), WithTTL(0))
	ctx := context.Background()

	require.NoError(t, store.Mutate(ctx, func(doc *models.Document) error {
		doc.Admins["alice"] = "hash"
		return nil
	}))

	other := NewStore(NewFileBackend(path), WithTTL(0))
	doc, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash", doc.Admins["alice"])
}

func TestBadgerBackend_InMemory(t *testing.T) {
	backend, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	store := NewStore(backend, WithTTL(0))
	defer store.Close()
	ctx := context.Background()

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCategories), doc.CategoriesList.Len())

	require.NoError(t, store.Mutate(ctx, func(doc *models.Document) error {
		doc.Home.Logo = "logo.png"
		return nil
	}))
	doc, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "logo.png", doc.Home.Logo)
}

func TestWatcher_InvalidatesOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "unrelated.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`{"home":{}}`), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change notification")
	}
}

func TestSeedDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	seed := `
home:
  logo: brand.png
  text: "# Hello"
categories:
  - key: laptop
    name: "💻 Laptop"
    description: First day setup
    steps:
      - title: Unbox
        text: Open the box
faq:
  - q: Who do I call?
    a: The help desk.
`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	defaults, err := SeedDefaults(path)
	require.NoError(t, err)
	doc := defaults()

	assert.Equal(t, "brand.png", doc.Home.Logo)
	assert.Equal(t, []string{"laptop"}, doc.CategoriesList.Keys())
	require.NotNil(t, doc.Category("laptop"))
	assert.Equal(t, "Unbox", doc.Category("laptop").Steps[0].Title)
	assert.Equal(t, []models.FAQEntry{{Q: "Who do I call?", A: "The help desk."}}, doc.FAQ)

	store := NewStore(NewMemoryBackend(nil), WithTTL(0), WithDefaults(defaults))
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "First day setup", loaded.Category("laptop").Description)
}

func TestSeedDefaults_RejectsReservedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - key: faq\n    name: FAQ\n"), 0o644))

	_, err := SeedDefaults(path)
	assert.Error(t, err)
}
