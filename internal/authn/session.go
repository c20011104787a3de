package authn

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the voting API reads the session token from.
const SessionCookie = "qv_session"

// Claims is the session token payload issued after a federated login.
// Subject (from RegisteredClaims) carries the provider-scoped user id.
type Claims struct {
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid session token")

func IssueSessionToken(secret []byte, provider, subject, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Provider: provider,
		Email:    email,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseSessionToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
