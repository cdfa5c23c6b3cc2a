package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"induction-portal/db"
	"induction-portal/models"
	"induction-portal/session"
)

// ErrInvalidCredentials is returned for a failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator checks admin logins against the master account and the
// document's admins map.
type Authenticator struct {
	repo           db.Repository
	masterUsername string
	masterPassword string
	clock          func() time.Time
	log            *logrus.Entry
}

// NewAuthenticator returns an Authenticator. An empty master password disables the master account.
func NewAuthenticator(repo db.Repository, masterUsername, masterPassword string) *Authenticator {
	return &Authenticator{
		repo:           repo,
		masterUsername: masterUsername,
		masterPassword: masterPassword,
		clock:          time.Now,
		log:            logrus.WithField("component", "auth"),
	}
}

// Login flips the session admin flag on success. Successful logins are
// recorded in the system log and legacy hashes are upgraded to bcrypt.
func (a *Authenticator) Login(ctx context.Context, s *session.Session, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	master := a.masterPassword != "" && username == a.masterUsername &&
		subtle.ConstantTimeCompare([]byte(password), []byte(a.masterPassword)) == 1

	upgrade := false
	if !master {
		doc, err := a.repo.Load(ctx)
		if err != nil {
			return fmt.Errorf("load admins: %w", err)
		}
		stored, ok := doc.Admins[username]
		if !ok || !VerifyPassword(stored, password) {
			a.log.WithField("username", username).Warn("failed admin login")
			return ErrInvalidCredentials
		}
		upgrade = !IsBcrypt(stored)
	}

	s.IsAdmin = true
	s.AdminUser = username

	err := a.repo.Mutate(ctx, func(doc *models.Document) error {
		if upgrade {
			if h, err := HashPassword(password); err == nil {
				doc.Admins[username] = h
			}
		}
		doc.AppendLog(a.clock(), "INFO", "Admin login: "+username)
		return nil
	})
	if err != nil {
		a.log.WithError(err).WithField("username", username).Error("failed to record admin login")
	}
	return nil
}

// Logout clears the session admin flag.
func (a *Authenticator) Logout(s *session.Session) {
	if s.IsAdmin {
		a.log.WithField("username", s.AdminUser).Info("admin logout")
	}
	s.Logout()
}
