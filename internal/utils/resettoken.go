package utils

import (
	"crypto/rand"   // Token entropy
	"crypto/sha256" // Token hashing
	"encoding/hex"  // Hex encoding
	"time"          // Expiry
)

// ResetTokenTTL is how long a password reset link stays valid
const ResetTokenTTL = 15 * time.Minute

// GenerateResetToken returns a random 256-bit token and the hash to persist
func GenerateResetToken() (raw string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken returns the SHA-256 hex digest stored in place of the raw token
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
