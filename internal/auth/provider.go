package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/lindash/lindash/internal/logger"
)

// Linear OAuth endpoints.
var oauthEndpoint = oauth2.Endpoint{
	AuthURL:  "https://linear.app/oauth/authorize",
	TokenURL: "https://api.linear.app/oauth/token",
}

// refreshWindow refreshes bearer sessions slightly before they actually
// expire so an in-flight request doesn't race the deadline.
const refreshWindow = 2 * time.Minute

// Provider yields the current session, consulted before any fetch.
type Provider interface {
	CurrentSession(ctx context.Context) (Session, error)
}

// StaticProvider serves a fixed personal API key.
type StaticProvider struct {
	Key string
}

// CurrentSession implements Provider.
func (p StaticProvider) CurrentSession(ctx context.Context) (Session, error) {
	if p.Key == "" {
		return Session{}, ErrUnauthenticated
	}
	return Session{AccessToken: p.Key, TokenType: TokenAPIKey, CreatedAt: time.Now()}, nil
}

// ProfileProvider serves the session stored for a named profile, refreshing
// bearer tokens through the OAuth token endpoint when they near expiry.
type ProfileProvider struct {
	store    *Store
	profile  string
	clientID string

	mu     sync.Mutex
	cached *Session
}

// NewProfileProvider creates a provider over the given store and profile.
func NewProfileProvider(store *Store, profile, clientID string) *ProfileProvider {
	return &ProfileProvider{store: store, profile: profile, clientID: clientID}
}

// CurrentSession implements Provider.
func (p *ProfileProvider) CurrentSession(ctx context.Context) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && !p.cached.WillExpireWithin(refreshWindow) {
		return *p.cached, nil
	}

	session, err := p.store.Load(p.profile)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return Session{}, ErrUnauthenticated
		}
		return Session{}, fmt.Errorf("load session for profile %s: %w", p.profile, err)
	}

	if session.TokenType == TokenBearer && session.WillExpireWithin(refreshWindow) {
		refreshed, err := p.refresh(ctx, session)
		if err != nil {
			logger.ErrorWithErr(err, "auth: token refresh failed profile=%s", p.profile)
			if session.Expired() {
				return Session{}, ErrUnauthenticated
			}
			// Not yet expired; keep using the current token.
		} else {
			session = refreshed
			if err := p.store.Save(p.profile, session); err != nil {
				logger.Warning("auth: could not persist refreshed session profile=%s error=%v", p.profile, err)
			}
		}
	}

	if session.Expired() {
		return Session{}, ErrUnauthenticated
	}

	p.cached = &session
	return session, nil
}

func (p *ProfileProvider) refresh(ctx context.Context, session Session) (Session, error) {
	if session.RefreshToken == "" {
		return Session{}, fmt.Errorf("session has no refresh token")
	}
	cfg := &oauth2.Config{ClientID: p.clientID, Endpoint: oauthEndpoint}
	src := cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: session.RefreshToken,
		// Expired access token forces the source to hit the token endpoint.
		AccessToken: session.AccessToken,
		Expiry:      time.Now().Add(-time.Minute),
	})
	token, err := src.Token()
	if err != nil {
		return Session{}, fmt.Errorf("refresh token: %w", err)
	}

	refreshed := Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    TokenBearer,
		Scope:        session.Scope,
		CreatedAt:    time.Now(),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = session.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		refreshed.ExpiresAt = &expiry
	}
	logger.Info("auth: refreshed session profile=%s", p.profile)
	return refreshed, nil
}

// Chain tries providers in order and returns the first usable session.
type Chain []Provider

// CurrentSession implements Provider.
func (c Chain) CurrentSession(ctx context.Context) (Session, error) {
	for _, provider := range c {
		session, err := provider.CurrentSession(ctx)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return Session{}, err
		}
	}
	return Session{}, ErrUnauthenticated
}
