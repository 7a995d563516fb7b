package utils

import (
	"context" // Context for revocation lookups
	"errors"  // Sentinel errors
	"time"    // Time for token expiration

	"securegate/internal/domain" // Roles

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Token ids
)

// SessionTTL is how long a session credential stays valid
const SessionTTL = 30 * 24 * time.Hour

// ErrInvalidSession is returned for any token that fails verification
var ErrInvalidSession = errors.New("invalid or expired token")

// JWT Claims
type Claims struct {
	UserID               uint        `json:"userId"` // Custom claim for user ID
	Role                 domain.Role `json:"role"`   // Custom claim for role
	jwt.RegisteredClaims             // Standard JWT claims
}

// GenerateJWT creates a signed JWT for a given user ID and role
func GenerateJWT(userID uint, role domain.Role, secret string) (string, *Claims, error) {
	now := time.Now()
	jti, err := uuid.NewV7() // Time-ordered id, carries the issue time in milliseconds
	if err != nil {
		return "", nil, err
	}
	// Set token claims
	claims := &Claims{
		UserID: userID, // Custom claim for user ID
		Role:   role,   // Custom claim for role
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),                            // Unique id so a single token can be revoked
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)), // Token expires in 30 days
			IssuedAt:  jwt.NewNumericDate(now),                 // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	// Check for parsing errors
	if err != nil {
		return nil, ErrInvalidSession // Never leak parser details
	}
	// Validate token and extract claims
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || !claims.Role.Valid() {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// SessionManager issues and verifies session credentials
type SessionManager struct {
	secret  string
	revoker *Revoker
}

// NewSessionManager creates a session manager. A nil revoker makes revocation advisory only.
func NewSessionManager(secret string, revoker *Revoker) *SessionManager {
	return &SessionManager{secret: secret, revoker: revoker}
}

// Issue signs a new session credential
func (m *SessionManager) Issue(userID uint, role domain.Role) (string, *Claims, error) {
	return GenerateJWT(userID, role, m.secret)
}

// Verify checks the signature, expiry and revocation state of a token
func (m *SessionManager) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := ParseJWT(tokenStr, m.secret)
	if err != nil {
		return nil, err
	}
	revoked, err := m.revoker.IsRevoked(ctx, claims)
	if err != nil || revoked {
		return nil, ErrInvalidSession // Fail closed when the revocation state is unknown
	}
	return claims, nil
}

// Revoke invalidates one credential until its natural expiry
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	return m.revoker.Revoke(ctx, claims)
}

// RevokeUser invalidates every credential issued to the user before now
func (m *SessionManager) RevokeUser(ctx context.Context, userID uint) error {
	return m.revoker.RevokeUser(ctx, userID, time.Now())
}
