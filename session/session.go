// Package session holds the per-browser-session context and its stores.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// SSOUser is the identity established through the identity provider.
type SSOUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the explicit per-session state. Handlers load it at the start
// of a request and save it at the end.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	IsAdmin   bool   `json:"is_admin"`
	AdminUser string `json:"admin_user,omitempty"`

	// UserID caches the generated fallback identity.
	UserID  string   `json:"user_id,omitempty"`
	SSOUser *SSOUser `json:"sso_user,omitempty"`

	NavLabel    string `json:"nav_label,omitempty"`
	SearchQuery string `json:"search_query,omitempty"`
	Language    string `json:"language,omitempty"`
	OAuthState  string `json:"oauth_state,omitempty"`
	Flash       string `json:"flash,omitempty"`

	ViewedPages     map[string]bool `json:"viewed_pages,omitempty"`
	CompletedGuides map[string]bool `json:"completed_guides,omitempty"`
}

// New returns a fresh session valid for ttl.
func New(ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// HasViewed reports whether a page view of key was already counted.
func (s *Session) HasViewed(key string) bool { return s.ViewedPages[key] }

// MarkViewed records that a page view of key was counted.
func (s *Session) MarkViewed(key string) {
	if s.ViewedPages == nil {
		s.ViewedPages = map[string]bool{}
	}
	s.ViewedPages[key] = true
}

// HasCompleted reports whether a completion of key was already counted.
func (s *Session) HasCompleted(key string) bool { return s.CompletedGuides[key] }

// MarkCompleted records that a completion of key was counted.
func (s *Session) MarkCompleted(key string) {
	if s.CompletedGuides == nil {
		s.CompletedGuides = map[string]bool{}
	}
	s.CompletedGuides[key] = true
}

// IsSSOAuthenticated reports whether an SSO identity is bound.
func (s *Session) IsSSOAuthenticated() bool {
	return s.SSOUser != nil && s.SSOUser.ID != ""
}

// Logout drops admin rights.
func (s *Session) Logout() {
	s.IsAdmin = false
	s.AdminUser = ""
}

// PopFlash returns and clears the pending flash message.
func (s *Session) PopFlash() string {
	msg := s.Flash
	s.Flash = ""
	return msg
}

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
