// Package auth supplies the signed-in user and a fresh access token for
// requests to the remote data store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned when no user or token is configured.
var ErrNotAuthenticated = errors.New("user not authenticated")

// User is the signed-in account.
type User struct {
	ID string
}

// Provider answers who is signed in and with which bearer token.
type Provider interface {
	CurrentUser(ctx context.Context) (User, error)
	AccessToken(ctx context.Context) (string, error)
}

// OAuthConfig configures a refresh-token backed provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	RefreshToken string
}

// TokenProvider is a Provider over an oauth2.TokenSource.
type TokenProvider struct {
	userID string
	source oauth2.TokenSource
}

// NewTokenProvider wraps source for userID.
func NewTokenProvider(userID string, source oauth2.TokenSource) *TokenProvider {
	return &TokenProvider{userID: userID, source: source}
}

// NewStaticProvider serves a fixed access token, for example one pasted
// from the browser session.
func NewStaticProvider(userID, accessToken string) *TokenProvider {
	var source oauth2.TokenSource
	if accessToken != "" {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	}
	return NewTokenProvider(userID, source)
}

// NewRefreshProvider exchanges a refresh token for access tokens as they
// expire. ctx carries the HTTP client used for refreshes.
func NewRefreshProvider(ctx context.Context, userID string, cfg OAuthConfig) (*TokenProvider, error) {
	if cfg.ClientID == "" || cfg.TokenURL == "" {
		return nil, errors.New("oauth configuration is incomplete")
	}
	if cfg.RefreshToken == "" {
		return nil, errors.New("oauth refresh token is required")
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		Scopes: cfg.Scopes,
	}
	// An already-expired token forces the first call to refresh.
	seed := &oauth2.Token{RefreshToken: cfg.RefreshToken, Expiry: time.Unix(1, 0)}
	return NewTokenProvider(userID, oauth2.ReuseTokenSource(nil, oc.TokenSource(ctx, seed))), nil
}

// CurrentUser implements Provider.
func (p *TokenProvider) CurrentUser(context.Context) (User, error) {
	if p.userID == "" {
		return User{}, ErrNotAuthenticated
	}
	return User{ID: p.userID}, nil
}

// AccessToken implements Provider.
func (p *TokenProvider) AccessToken(context.Context) (string, error) {
	if p.source == nil {
		return "", ErrNotAuthenticated
	}
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("obtain access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	return tok.AccessToken, nil
}
