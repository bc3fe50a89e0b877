package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sign issues a token for userID. It exists for tests and local tooling; in
// production tokens come from the identity provider.
func Sign(secret, issuer, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
