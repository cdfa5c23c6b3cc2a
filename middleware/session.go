package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"induction-portal/session"
)

const sessionKey = "session"

// SessionOptions configure the session cookie.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions loads the session named by the cookie, or starts a new one, and
// saves it after the handler ran.
func Sessions(store session.Store, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var s *session.Session
		if id, err := c.Cookie(opts.CookieName); err == nil && id != "" {
			s, err = store.Get(ctx, id)
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				logrus.WithError(err).Warn("failed to load session")
			}
		}
		if s == nil {
			s = session.New(opts.TTL)
		}
		c.Set(sessionKey, s)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, s.ID, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)

		c.Next()

		if err := store.Save(ctx, s); err != nil {
			logrus.WithError(err).WithField("request_id", c.GetString(RequestIDKey)).Error("failed to save session")
		}
	}
}

// CurrentSession returns the session loaded by Sessions.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
