// Package auth resolves the owner of a request. Hosted deployments verify
// Supabase-issued HS256 access tokens; local deployments run single-user.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims are the access-token claims rapport reads.
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Validator verifies HS256 tokens signed with a shared secret.
type Validator struct {
	secret []byte
}

// NewValidator returns a Validator for secret.
func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("secret key required for HS256")
	}
	return &Validator{secret: []byte(secret)}, nil
}

// Validate parses a token, with or without the "Bearer " prefix, and returns
// its claims.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidClaims)
	}
	return claims, nil
}
