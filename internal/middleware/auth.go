package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	userIDKey = "user_id"
	claimsKey = "claims"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, validator) {
			return
		}
		if _, ok := UserID(c); !ok {
			RespondError(c, service.AuthenticationError("authentication credentials were not provided"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous
// requests through. A malformed or invalid token is still rejected.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, validator) {
			c.Next()
		}
	}
}

// authenticate stores the caller's claims when an Authorization header is
// present. It returns false after aborting the request.
func authenticate(c *gin.Context, validator TokenValidator) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return true
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || (scheme != "Bearer" && scheme != "Token") || token == "" {
		RespondError(c, service.AuthenticationError("invalid authorization header format"))
		c.Abort()
		return false
	}

	claims, err := validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		RespondError(c, service.AuthenticationError("invalid token"))
		c.Abort()
		return false
	}

	c.Set(userIDKey, claims.UserID)
	c.Set(claimsKey, claims)
	return true
}

// UserID returns the authenticated caller, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Viewer is UserID as a pointer, nil for anonymous callers.
func Viewer(c *gin.Context) *uuid.UUID {
	if id, ok := UserID(c); ok {
		return &id
	}
	return nil
}

func Claims(c *gin.Context) *types.TokenClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*types.TokenClaims)
	return claims
}
