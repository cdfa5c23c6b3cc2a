package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"induction-portal/config"
)

const testKey = "test-signing-key"

func signed(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return raw
}

func testConfig(tokenURL string) config.SSOConfig {
	return config.SSOConfig{
		ClientID:     "portal",
		ClientSecret: "secret",
		AuthURL:      "https://idp.example.com/authorize",
		TokenURL:     tokenURL,
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scopes:       []string{"openid", "profile"},
		IDTokenKey:   testKey,
		Issuer:       "https://idp.example.com",
	}
}

func TestAuthCodeURL(t *testing.T) {
	p := NewProvider(testConfig(""))
	u, err := url.Parse(p.AuthCodeURL("xyz"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "idp.example.com", u.Host)
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "portal", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid profile", q.Get("scope"))
}

func TestExchange(t *testing.T) {
	idToken := signed(t, jwt.MapClaims{
		"oid":                "oid-123",
		"sub":                "ignored",
		"name":               "Ana Pop",
		"preferred_username": "ana.pop@example.com",
		"iss":                "https://idp.example.com",
		"exp":                time.Now().Add(time.Hour).Unix(),
	}, testKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	defer srv.Close()

	p := NewProvider(testConfig(srv.URL))
	claims, err := p.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "oid-123", claims.Subject)
	assert.Equal(t, "Ana Pop", claims.Name)
	assert.Equal(t, "ana.pop@example.com", claims.Email)
}

func TestExchange_NoIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	_, err := NewProvider(testConfig(srv.URL)).Exchange(context.Background(), "c")
	assert.ErrorIs(t, err, ErrNoIDToken)
}

func TestParseIDToken(t *testing.T) {
	p := NewProvider(testConfig(""))
	future := time.Now().Add(time.Hour).Unix()

	claims, err := p.ParseIDToken(signed(t, jwt.MapClaims{
		"sub": "sub-9", "email": "x@example.com", "iss": "https://idp.example.com", "exp": future,
	}, testKey))
	require.NoError(t, err)
	assert.Equal(t, "sub-9", claims.Subject)
	assert.Equal(t, "x@example.com", claims.Email)

	_, err = p.ParseIDToken(signed(t, jwt.MapClaims{"sub": "s", "iss": "https://idp.example.com"}, "wrong-key"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.ParseIDToken(signed(t, jwt.MapClaims{"sub": "s", "iss": "https://evil.example.com"}, testKey))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.ParseIDToken(signed(t, jwt.MapClaims{
		"sub": "s", "iss": "https://idp.example.com", "exp": time.Now().Add(-time.Hour).Unix(),
	}, testKey))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.ParseIDToken(signed(t, jwt.MapClaims{"name": "nobody", "iss": "https://idp.example.com"}, testKey))
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestParseIDToken_SkipVerify(t *testing.T) {
	cfg := testConfig("")
	cfg.SkipVerify = true
	p := NewProvider(cfg)

	claims, err := p.ParseIDToken(signed(t, jwt.MapClaims{"oid": "dev-user"}, "any-key"))
	require.NoError(t, err)
	assert.Equal(t, "dev-user", claims.Subject)

	_, err = p.ParseIDToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
