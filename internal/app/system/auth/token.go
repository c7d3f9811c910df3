package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/gorilla/securecookie"
)

// RandomToken returns a URL-safe random token built from n random bytes.
// It returns "" only if the system random source fails.
func RandomToken(n int) string {
	b := securecookie.GenerateRandomKey(n)
	if b == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// HashToken returns the hex SHA-256 of a token. Only hashes are persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
