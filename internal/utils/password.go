package utils

import (
	"strings" // Character class checks

	"golang.org/x/crypto/bcrypt" // Password hashing
)

// PasswordSymbols is the fixed set of accepted special characters
const PasswordSymbols = "@$!%*#?&"

// PasswordRule is the human readable complexity requirement
const PasswordRule = "Password must be at least 8 characters long and include at least one letter, one number, and one special character."

// IsValidPassword checks the complexity rule: at least 8 characters drawn from letters, digits and
// PasswordSymbols, with at least one of each.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false // Too short
	}
	var letter, digit, symbol bool
	for _, r := range password {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		default:
			return false // Character outside the allowed set
		}
	}
	return letter && digit && symbol
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
