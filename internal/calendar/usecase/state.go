package usecase

import (
	"strings"
	"time"

	"cyra-kanban/internal/calendar/domain"

	"github.com/golang-jwt/jwt/v5"
)

const defaultRedirect = "/settings"

type stateClaims struct {
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// signState binds a consent round trip to userID. The redirect is stored as given and
// sanitized when read back.
func signState(secret []byte, userID, redirect string, now time.Time, ttl time.Duration) (string, error) {
	claims := stateClaims{
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseState(secret []byte, raw string, now time.Time) (*stateClaims, error) {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidState
	}
	return claims, nil
}

// safeRedirect only lets through paths on our own origin.
func safeRedirect(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return defaultRedirect
	}
	return path
}
