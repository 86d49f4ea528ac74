// Package utils provides helpers for issuing access tokens.
package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// RoleHost is the only role allowed to drive a session.
const RoleHost = "HOST"

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
	Token string    `json:"access_token"`
	Exp   time.Time `json:"expires_at"`
}

// NewAccessToken signs an HS256 JWT carrying the subject and role claims.
// The token expires ttlMin minutes after now.
func NewAccessToken(secret, subject, role string, ttlMin int, now time.Time) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, eris.New("jwt: empty signing secret")
	}
	if ttlMin <= 0 {
		return AccessToken{}, eris.Errorf("jwt: ttl must be positive, got %d", ttlMin)
	}
	now = now.UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, eris.Wrap(err, "jwt: sign")
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
