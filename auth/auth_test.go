package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"induction-portal/db"
	"induction-portal/models"
	"induction-portal/session"
)

func TestVerifyPassword(t *testing.T) {
	legacy := LegacyHash("secret")
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", legacy)
	assert.True(t, VerifyPassword(legacy, "secret"))
	assert.False(t, VerifyPassword(legacy, "Secret"))

	h, err := HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, IsBcrypt(h))
	assert.True(t, VerifyPassword(h, "secret"))
	assert.False(t, VerifyPassword(h, "nope"))

	assert.False(t, VerifyPassword("", ""))
}

func newAuth(t *testing.T, admins map[string]string) (*Authenticator, *db.Store) {
	t.Helper()
	store := db.NewStore(db.NewMemoryBackend(nil), db.WithTTL(0))
	require.NoError(t, store.Mutate(context.Background(), func(doc *models.Document) error {
		for u, h := range admins {
			doc.Admins[u] = h
		}
		return nil
	}))
	return NewAuthenticator(store, "admin", "master-pass"), store
}

func TestLogin_Master(t *testing.T) {
	a, store := newAuth(t, nil)
	s := session.New(time.Hour)

	require.NoError(t, a.Login(context.Background(), s, "admin", "master-pass"))
	assert.True(t, s.IsAdmin)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, doc.SystemLogs)
	assert.Equal(t, "Admin login: admin", doc.SystemLogs[0].Message)
}

func TestLogin_MasterDisabledWithoutPassword(t *testing.T) {
	store := db.NewStore(db.NewMemoryBackend(nil), db.WithTTL(0))
	a := NewAuthenticator(store, "admin", "")
	ctx := context.Background()

	for _, pass := range []string{"", "admin123"} {
		s := session.New(time.Hour)
		assert.ErrorIs(t, a.Login(ctx, s, "admin", pass), ErrInvalidCredentials, pass)
		assert.False(t, s.IsAdmin)
	}
}

func TestLogin_LegacyAdminIsUpgraded(t *testing.T) {
	a, store := newAuth(t, map[string]string{"ion": LegacyHash("pa55")})
	ctx := context.Background()
	s := session.New(time.Hour)

	require.NoError(t, a.Login(ctx, s, "ion", "pa55"))
	assert.True(t, s.IsAdmin)
	assert.Equal(t, "ion", s.AdminUser)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, IsBcrypt(doc.Admins["ion"]))

	again := session.New(time.Hour)
	require.NoError(t, a.Login(ctx, again, "ion", "pa55"), "upgraded hash still verifies")
}

func TestLogin_Rejects(t *testing.T) {
	a, _ := newAuth(t, map[string]string{"ion": LegacyHash("pa55")})
	ctx := context.Background()

	cases := []struct{ user, pass string }{
		{"ion", "wrong"},
		{"nobody", "pa55"},
		{"admin", "pa55"},
		{"", ""},
	}
	for _, tc := range cases {
		s := session.New(time.Hour)
		err := a.Login(ctx, s, tc.user, tc.pass)
		assert.ErrorIs(t, err, ErrInvalidCredentials, tc.user)
		assert.False(t, s.IsAdmin)
	}
}

func TestLogout(t *testing.T) {
	a, _ := newAuth(t, nil)
	s := session.New(time.Hour)
	require.NoError(t, a.Login(context.Background(), s, "admin", "master-pass"))

	a.Logout(s)
	assert.False(t, s.IsAdmin)
}
