package identity

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"induction-portal/db"
	"induction-portal/models"
	"induction-portal/session"
)

var hex8 = regexp.MustCompile(`^[0-9a-f]{8}$`)

func TestResolver_GeneratesAndCaches(t *testing.T) {
	r := NewResolver()
	s := session.New(time.Hour)

	id := r.UserID(s)
	assert.Regexp(t, hex8, id)
	assert.Equal(t, id, s.UserID)
	assert.Equal(t, id, r.UserID(s), "id is stable within the session")
}

func TestResolver_PrefersSSOSubject(t *testing.T) {
	r := NewResolver()
	s := session.New(time.Hour)
	s.UserID = "deadbeef"
	s.SSOUser = &session.SSOUser{ID: "oid-42"}

	assert.Equal(t, "oid-42", r.UserID(s))
}

func TestResolver_CustomStrategy(t *testing.T) {
	header := StrategyFunc(func(*session.Session) (string, bool) { return "gateway-user", true })
	r := NewResolver(header, SSOSubject)

	assert.Equal(t, "gateway-user", r.UserID(session.New(time.Hour)))
}

func TestGenerateID_DependsOnNonce(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := GenerateID(now, []byte("one"))
	b := GenerateID(now, []byte("two"))
	assert.Regexp(t, hex8, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, GenerateID(now, []byte("one")))
}

func TestBindSSOUser_KeepsRegistration(t *testing.T) {
	store := db.NewStore(db.NewMemoryBackend(nil), db.WithTTL(0))
	ctx := context.Background()
	require.NoError(t, store.Mutate(ctx, func(doc *models.Document) error {
		doc.UserProfiles["oid-1"] = models.UserProfile{Name: "Old", Department: "IT", RegisteredAt: "2023-01-01 08:00:00"}
		return nil
	}))

	s := session.New(time.Hour)
	require.NoError(t, BindSSOUser(ctx, store, s, Claims{Subject: "oid-1", Name: "Ana Pop", Email: "ana@example.com"}))

	assert.True(t, s.IsSSOAuthenticated())
	assert.Equal(t, "oid-1", NewResolver().UserID(s))

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	p := doc.UserProfiles["oid-1"]
	assert.Equal(t, "Ana Pop", p.Name)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, "IT", p.Department)
	assert.Equal(t, "2023-01-01 08:00:00", p.RegisteredAt)
}
