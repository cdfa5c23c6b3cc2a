package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"induction-portal/analytics"
	"induction-portal/auth"
	"induction-portal/cms"
	"induction-portal/db"
	"induction-portal/identity"
	"induction-portal/middleware"
	"induction-portal/navigation"
	"induction-portal/progress"
	"induction-portal/session"
	"induction-portal/sso"
)

// Deps are the services shared by all handlers.
type Deps struct {
	Repo      db.Repository
	CMS       *cms.Service
	Auth      *auth.Authenticator
	Tracker   *progress.Tracker
	Analytics *analytics.Aggregator
	IDs       *identity.Resolver
	Nav       *navigation.Synchronizer
	// SSO is nil when no identity provider is configured.
	SSO *sso.Provider
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, cms.ErrCategoryNotFound),
		errors.Is(err, cms.ErrStepNotFound),
		errors.Is(err, cms.ErrQuestionNotFound),
		errors.Is(err, cms.ErrVersionNotFound),
		errors.Is(err, cms.ErrFAQNotFound),
		errors.Is(err, cms.ErrAdminNotFound),
		errors.Is(err, progress.ErrCategoryNotFound),
		errors.Is(err, progress.ErrStepNotFound),
		errors.Is(err, analytics.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, cms.ErrCategoryExists):
		return http.StatusConflict
	case errors.Is(err, cms.ErrInvalidCategory),
		errors.Is(err, cms.ErrReservedKey),
		errors.Is(err, cms.ErrInvalidStep),
		errors.Is(err, cms.ErrInvalidQuiz),
		errors.Is(err, cms.ErrInvalidFAQ),
		errors.Is(err, cms.ErrInvalidAdmin),
		errors.Is(err, cms.ErrCannotMove),
		errors.Is(err, cms.ErrInvalidMedia),
		errors.Is(err, cms.ErrInvalidEstimate),
		errors.Is(err, cms.ErrInvalidYAML),
		errors.Is(err, progress.ErrInvalidFeedback):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// errorMessage is the text shown to the user for err.
func errorMessage(err error) string {
	if errors.Is(err, db.ErrSaveFailed) {
		return db.ErrSaveFailed.Error()
	}
	if errorStatus(err) == http.StatusInternalServerError {
		return "Internal error"
	}
	return err.Error()
}

// abortWithError logs server-side failures and writes the JSON error body.
func abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"path":       c.Request.URL.Path,
		}).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorMessage(err)})
}

// currentSession returns the request session, or a throwaway one when the
// Sessions middleware is not installed.
func currentSession(c *gin.Context) *session.Session {
	if s := middleware.CurrentSession(c); s != nil {
		return s
	}
	return session.New(0)
}

// adminName is the author recorded for CMS edits.
func adminName(s *session.Session) string {
	if s.AdminUser != "" {
		return s.AdminUser
	}
	return "admin"
}

// intParam parses a path parameter as a non-negative int.
func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}
