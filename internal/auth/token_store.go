// Package auth persists the authenticated session (token pair and user
// profile) in the client-local store.
package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/englishstudent/client/internal/models"
	"github.com/englishstudent/client/internal/storage"
)

// Storage keys. The names match what the web client has always used,
// so an existing local store stays valid.
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
	userKey         = "user"
)

// TokenStore reads and writes the session in a key-value store. It
// never issues or verifies tokens; that belongs to the backend.
type TokenStore struct {
	store storage.Store
}

// NewTokenStore creates a token store over the given key-value store.
func NewTokenStore(store storage.Store) *TokenStore {
	return &TokenStore{store: store}
}

// SaveSession persists both tokens and the user profile. Called on
// login and register.
func (ts *TokenStore) SaveSession(tokens models.AuthTokens, user models.User) error {
	if err := ts.store.Set(accessTokenKey, tokens.Access); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := ts.store.Set(refreshTokenKey, tokens.Refresh); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return ts.SaveUser(user)
}

// SaveUser persists only the user profile (used after /auth/me/).
func (ts *TokenStore) SaveUser(user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := ts.store.Set(userKey, string(data)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the access token. Called after a
// successful refresh.
func (ts *TokenStore) SetAccessToken(token string) error {
	if err := ts.store.Set(accessTokenKey, token); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or empty when logged
// out.
func (ts *TokenStore) AccessToken() string {
	v, _, _ := ts.store.Get(accessTokenKey)
	return v
}

// RefreshToken returns the stored refresh token, or empty when logged
// out.
func (ts *TokenStore) RefreshToken() string {
	v, _, _ := ts.store.Get(refreshTokenKey)
	return v
}

// User returns the stored user profile, or nil when logged out.
func (ts *TokenStore) User() (*models.User, error) {
	v, ok, err := ts.store.Get(userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if !ok || v == "" {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(v), &user); err != nil {
		return nil, fmt.Errorf("failed to parse stored user: %w", err)
	}
	return &user, nil
}

// IsAuthenticated reports whether an access token is stored.
func (ts *TokenStore) IsAuthenticated() bool {
	return ts.AccessToken() != ""
}

// Clear destroys the session. Called on logout and when a refresh
// fails.
func (ts *TokenStore) Clear() error {
	if err := ts.store.Remove(accessTokenKey); err != nil {
		return fmt.Errorf("failed to remove access token: %w", err)
	}
	if err := ts.store.Remove(refreshTokenKey); err != nil {
		return fmt.Errorf("failed to remove refresh token: %w", err)
	}
	if err := ts.store.Remove(userKey); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	return nil
}

// AccessTokenExpiresAt reads the exp claim of the stored access token
// without verifying the signature (the client holds no signing key).
// Returns the zero time when no token is stored, the token is opaque,
// or it carries no expiry.
func (ts *TokenStore) AccessTokenExpiresAt() time.Time {
	token := ts.AccessToken()
	if token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
