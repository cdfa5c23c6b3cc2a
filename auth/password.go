// Package auth handles admin credentials and login.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash for new admin accounts.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// LegacyHash is the unsalted sha256 hex digest older documents store.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword checks password against a stored bcrypt or legacy hash.
func VerifyPassword(stored, password string) bool {
	if stored == "" {
		return false
	}
	if IsBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(LegacyHash(password))) == 1
}

// IsBcrypt reports whether stored is a bcrypt hash.
func IsBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}
