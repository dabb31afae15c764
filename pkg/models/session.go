package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the backend-issued identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the credential bundle issued by the auth backend.
// Absence of a session means signed out.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Claims decodes the access token without verifying the signature.
// The client has no signing key; verification is the backend's job.
func (s *Session) Claims() (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
