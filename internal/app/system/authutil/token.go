package authutil

import (
	"crypto/rand"
	"encoding/hex"
)

// ResetTokenBytes is the entropy of a password reset token (256 bits).
const ResetTokenBytes = 32

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// RandomToken returns n random bytes, hex-encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidPassword reports whether pw can be hashed: non-empty and within
// bcrypt's length limit.
func ValidPassword(pw string) bool {
	return pw != "" && len(pw) <= MaxPasswordBytes
}
