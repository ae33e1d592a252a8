// Package auth resolves the credentials used for API access. A session comes
// either from a personal API key or from a stored OAuth session that is
// refreshed when close to expiry.
package auth

import (
	"errors"
	"time"
)

// ErrUnauthenticated is returned when no usable session can be produced. It is
// fatal for the running dashboard; the user has to log in again.
var ErrUnauthenticated = errors.New("unauthenticated: no valid session for profile")

// TokenType distinguishes OAuth bearer tokens from personal API keys. The two
// use different Authorization header shapes.
type TokenType string

const (
	TokenBearer TokenType = "bearer"
	TokenAPIKey TokenType = "api_key"
)

// Session is an authenticated credential for the API.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    TokenType  `json:"token_type"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scope        []string   `json:"scope,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether the session's access token has expired. API keys
// never expire.
func (s Session) Expired() bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !time.Now().Before(*s.ExpiresAt)
}

// WillExpireWithin reports whether the session expires inside the window.
func (s Session) WillExpireWithin(window time.Duration) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !time.Now().Add(window).Before(*s.ExpiresAt)
}

// AuthorizationHeader returns the value for the Authorization header.
func (s Session) AuthorizationHeader() string {
	if s.TokenType == TokenBearer {
		return "Bearer " + s.AccessToken
	}
	return s.AccessToken
}
