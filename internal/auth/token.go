// ABOUTME: Session token issuing and verification for the HTTP API
// ABOUTME: HS256 JWTs with a fixed issuer and a per-instance lifetime policy

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// tokenIssuer is stamped into every issued token and required on verify,
// so tokens minted by unrelated services sharing a secret are rejected.
const tokenIssuer = "patter"

const defaultTokenTTL = 24 * time.Hour

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (userID string, err error)
}

// SessionTokens issues and verifies session tokens. The lifetime policy is
// part of the type: callers mint tokens without choosing an expiry.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionTokens creates a token authority with the given signing secret.
// A non-positive ttl falls back to 24 hours.
func NewSessionTokens(secret []byte, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &SessionTokens{secret: secret, ttl: ttl}
}

// Issue mints a signed token for the given user ID, valid for the
// configured lifetime.
func (s *SessionTokens) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates the signature, expiry and issuer, and extracts the user
// ID from the subject claim.
func (s *SessionTokens) Verify(tokenString string) (userID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return claims.Subject, nil
}
