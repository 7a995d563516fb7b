package utils

import (
	"context" // Context for Redis operations
	"strconv" // Key and timestamp formatting
	"time"    // TTLs

	"github.com/google/uuid"       // Token id timestamps
	"github.com/redis/go-redis/v9" // Redis client
)

// Revoker keeps a Redis denylist of session tokens. All methods are no-ops on a nil Revoker.
type Revoker struct {
	rdb *redis.Client
}

// NewRevoker creates a revoker backed by rdb, or nil when rdb is nil
func NewRevoker(rdb *redis.Client) *Revoker {
	if rdb == nil {
		return nil
	}
	return &Revoker{rdb: rdb}
}

func revokedTokenKey(jti string) string {
	return "session:revoked:" + jti
}

func userNotBeforeKey(userID uint) string {
	return "session:user:" + strconv.FormatUint(uint64(userID), 10) + ":notbefore"
}

// Revoke denylists the token id until the token would have expired anyway
func (r *Revoker) Revoke(ctx context.Context, claims *Claims) error {
	if r == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil // Already expired
	}
	return r.rdb.Set(ctx, revokedTokenKey(claims.ID), "1", ttl).Err()
}

// RevokeUser rejects every token for the user issued strictly before at, to the millisecond
func (r *Revoker) RevokeUser(ctx context.Context, userID uint, at time.Time) error {
	if r == nil {
		return nil
	}
	return r.rdb.Set(ctx, userNotBeforeKey(userID), at.UnixMilli(), SessionTTL).Err()
}

// issuedAtMillis reads the issue time from a version 7 token id.
// The iat claim only has second resolution and is the fallback for other ids.
func issuedAtMillis(claims *Claims) (int64, bool) {
	if id, err := uuid.Parse(claims.ID); err == nil && id.Version() == 7 {
		var ms int64
		for _, b := range id[:6] {
			ms = ms<<8 | int64(b)
		}
		return ms, true
	}
	if claims.IssuedAt == nil {
		return 0, false
	}
	return claims.IssuedAt.UnixMilli(), true
}

// IsRevoked reports whether the token was revoked individually or by a user-wide mark
func (r *Revoker) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if r == nil {
		return false, nil
	}
	vals, err := r.rdb.MGet(ctx, revokedTokenKey(claims.ID), userNotBeforeKey(claims.UserID)).Result()
	if err != nil {
		return false, err
	}
	if vals[0] != nil {
		return true, nil
	}
	if vals[1] == nil {
		return false, nil
	}
	s, _ := vals[1].(string)
	notBefore, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false, err
	}
	issued, ok := issuedAtMillis(claims)
	if !ok {
		return true, nil
	}
	return issued < notBefore, nil
}
