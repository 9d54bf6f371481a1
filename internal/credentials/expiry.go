package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryOf returns the exp claim of a JWT access token without verifying its
// signature. Opaque or unparseable tokens yield the zero time.
func ExpiryOf(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
