package tokenstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for tokens that are not JWTs.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims are the unverified claims of a backend-issued token.
type Claims struct {
	// Subject identifies the signed-in user
	Subject string

	// ExpiresAt is zero when the token carries no exp claim
	ExpiresAt time.Time
}

// Expired reports whether the token expired before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes the claims of token without verifying its signature.
// The signature can only be checked by the backend; the result is for display.
func Inspect(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNotJWT
	}

	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
