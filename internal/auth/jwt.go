package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any bearer token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Verification is the outcome of checking an optional bearer credential.
// The zero value is Unverified.
type Verification struct {
	UserID   string
	Verified bool
}

// Unverified is an anonymous caller
var Unverified = Verification{}

// Verified wraps a successfully verified identity
func Verified(userID string) Verification {
	return Verification{UserID: userID, Verified: true}
}

// Claims is the payload of the app's own identity tokens
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the app's HS256 identity tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateJWT generates a JWT token for the user
func (t *TokenIssuer) GenerateJWT(userID string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (t *TokenIssuer) ValidateJWT(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}
	return claims.UserID, nil
}

// Verify checks a raw bearer token. Any failure yields Unverified.
func (t *TokenIssuer) Verify(tokenString string) Verification {
	userID, err := t.ValidateJWT(tokenString)
	if err != nil {
		return Unverified
	}
	return Verified(userID)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
