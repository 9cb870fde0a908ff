package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenService issues session auth tokens: hex-encoded
// HMAC-SHA-256(secret, "{userId}:{unixMillis}"). Tokens are opaque to
// clients; the registry maps them back to sessions.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Generate returns the token for userID at the given instant.
func (s *TokenService) Generate(userID int64, at time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d:%d", userID, at.UnixMilli())
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
