package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid identity token")

type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for v. Used by the reference server tooling and tests;
// production tokens come from the identity provider.
func Issue(v Viewer, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: v.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token against secret and returns its viewer.
func Parse(token string, secret []byte) (Viewer, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Viewer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return viewerFrom(claims)
}

// Unverified reads the viewer without checking the signature. Clients use it
// only to decide which controls to show; the server still verifies.
func Unverified(token string) (Viewer, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Viewer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return viewerFrom(claims)
}

func viewerFrom(c Claims) (Viewer, error) {
	if c.Subject == "" {
		return Viewer{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Viewer{UserID: c.Subject, Username: c.Username}, nil
}
