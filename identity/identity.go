// Package identity resolves the stable user id of a session.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"induction-portal/db"
	"induction-portal/models"
	"induction-portal/session"
)

// Strategy yields a user id for the session when it can.
type Strategy interface {
	Resolve(s *session.Session) (string, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(s *session.Session) (string, bool)

func (f StrategyFunc) Resolve(s *session.Session) (string, bool) { return f(s) }

// SSOSubject resolves to the bound SSO subject id.
var SSOSubject = StrategyFunc(func(s *session.Session) (string, bool) {
	if s.IsSSOAuthenticated() {
		return s.SSOUser.ID, true
	}
	return "", false
})

// SessionCached resolves to a previously generated id.
var SessionCached = StrategyFunc(func(s *session.Session) (string, bool) {
	return s.UserID, s.UserID != ""
})

// Resolver tries strategies in order and falls back to generating an id,
// which is then cached in the session.
type Resolver struct {
	strategies []Strategy
	clock      func() time.Time
	nonce      func() []byte
}

// NewResolver returns a resolver; with no strategies it uses SSOSubject then SessionCached.
func NewResolver(strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = []Strategy{SSOSubject, SessionCached}
	}
	return &Resolver{
		strategies: strategies,
		clock:      time.Now,
		nonce:      randomNonce,
	}
}

// UserID returns the id of the user behind s.
func (r *Resolver) UserID(s *session.Session) string {
	for _, st := range r.strategies {
		if id, ok := st.Resolve(s); ok {
			return id
		}
	}
	id := GenerateID(r.clock(), r.nonce())
	s.UserID = id
	return id
}

// GenerateID is the first 8 hex chars of sha256(timestamp + nonce).
func GenerateID(now time.Time, nonce []byte) string {
	h := sha256.New()
	h.Write([]byte(now.Format(time.RFC3339Nano)))
	h.Write(nonce)
	return hex.EncodeToString(h.Sum(nil))[:8]
}

func randomNonce() []byte {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("identity: crypto/rand failed: " + err.Error())
	}
	return b
}

// Claims are the profile claims handed over by the identity provider.
type Claims struct {
	Subject string
	Name    string
	Email   string
}

// BindSSOUser persists the profile of the SSO user and marks the session
// as SSO-authenticated. An existing registered_at is kept.
func BindSSOUser(ctx context.Context, repo db.Repository, s *session.Session, claims Claims) error {
	err := repo.Mutate(ctx, func(doc *models.Document) error {
		dept := doc.UserProfiles[claims.Subject].Department
		UpsertProfile(doc, claims.Subject, claims.Name, claims.Email, dept, time.Now())
		return nil
	})
	if err != nil {
		return err
	}
	s.SSOUser = &session.SSOUser{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
	return nil
}

// UpsertProfile writes a profile for id, keeping the original registration time.
func UpsertProfile(doc *models.Document, id, name, email, department string, now time.Time) {
	if doc.UserProfiles == nil {
		doc.UserProfiles = map[string]models.UserProfile{}
	}
	registered := models.Stamp(now)
	if prev, ok := doc.UserProfiles[id]; ok && prev.RegisteredAt != "" {
		registered = prev.RegisteredAt
	}
	doc.UserProfiles[id] = models.UserProfile{
		Name:         name,
		Email:        email,
		Department:   department,
		RegisteredAt: registered,
	}
}
