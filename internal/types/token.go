package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the JWT payload. The registered ID (jti) is the handle
// logout revokes.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// Revocable reports whether the token carries what a denylist entry needs:
// an ID and an expiry to keep the entry until.
func (c *TokenClaims) Revocable() (string, time.Time, bool) {
	if c == nil || c.ID == "" || c.ExpiresAt == nil {
		return "", time.Time{}, false
	}
	return c.ID, c.ExpiresAt.Time, true
}
