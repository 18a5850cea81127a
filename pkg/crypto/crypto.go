package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/bcrypt"
)

// HashToken creates a bcrypt hash of an API token for the server config
func HashToken(token string) (string, error) {
	if token == "" {
		return "", goerr.New("token must not be empty")
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", goerr.Wrap(err, "failed to hash token")
	}
	return string(bytes), nil
}

// CheckToken compares a token against a bcrypt hash
func CheckToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	return err == nil
}

// GenerateToken creates a cryptographically secure random token of length
// random bytes, URL-safe base64 encoded
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		return "", goerr.New("token length must be positive", goerr.V("length", length))
	}
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", goerr.Wrap(err, "failed to generate token")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. It returns "" when the header has another scheme.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
