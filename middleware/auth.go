package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"induction-portal/db"
	"induction-portal/identity"
	"induction-portal/sso"
)

// SSOBearer accepts an ID token forwarded by a trusted gateway in the
// Authorization header and binds its identity to the session. Requests
// without the header pass through unchanged.
func SSOBearer(provider *sso.Provider, repo db.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.ToLower(parts[0]) == "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := provider.ParseIDToken(parts[1])
		if err != nil {
			logrus.WithError(err).WithField("request_id", c.GetString(RequestIDKey)).Warn("bearer token rejected")
			switch {
			case errors.Is(err, jwt.ErrSignatureInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token signature"})
			case errors.Is(err, jwt.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, jwt.ErrTokenNotValidYet):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token not active yet"})
			case errors.Is(err, jwt.ErrTokenInvalidIssuer):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token issuer"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		s := CurrentSession(c)
		if s == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Session not initialized"})
			return
		}
		if s.SSOUser == nil || s.SSOUser.ID != claims.Subject {
			if err := identity.BindSSOUser(c.Request.Context(), repo, s, claims); err != nil {
				logrus.WithError(err).WithField("user_id", claims.Subject).Error("failed to bind SSO user")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to store user profile"})
				return
			}
		}
		c.Next()
	}
}

// RequireAdmin rejects sessions without an admin login.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := CurrentSession(c)
		if s == nil || !s.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access Denied. Please login."})
			return
		}
		c.Next()
	}
}
