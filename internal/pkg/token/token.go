package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerificationTokenLength is the rendered length of a verification token:
// 16 random bytes as hex.
const VerificationTokenLength = 32

// NewVerificationToken generates a single-use email verification token from a
// cryptographically secure random source.
func NewVerificationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// UnsubscribeSignature derives the unsubscribe token for an email address:
// hex(HMAC-SHA256(secret, lower(email))). It is never stored; any holder of
// the secret can regenerate it without a database round trip.
func UnsubscribeSignature(secret, email string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyUnsubscribeSignature checks a presented unsubscribe token in constant
// time.
func VerifyUnsubscribeSignature(secret, email, presented string) bool {
	expected := UnsubscribeSignature(secret, email)
	return hmac.Equal([]byte(expected), []byte(presented))
}
