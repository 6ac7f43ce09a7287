// Package auth holds the session credential for the realtime client. Token
// acquisition and renewal belong to the host application; this package only
// stores the token, answers expiry questions, and forgets the token when
// the server rejects it.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore keeps the current bearer token. The zero value is usable and
// holds no token.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore returns a store seeded with token.
func NewTokenStore(token string) *TokenStore {
	return &TokenStore{token: token}
}

// SetToken replaces the stored token, e.g. after the host re-authenticates.
func (s *TokenStore) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Token returns the stored token, or "" if none is set or the token has
// already expired. Connect uses the empty result to fail fast instead of
// dialing with a credential the server will reject.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || expired(s.token, time.Now()) {
		return ""
	}
	return s.token
}

// Clear forgets the token. Called on an authentication-failure close so the
// host knows to re-authenticate before the next session.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// expired inspects the token's exp claim without verifying the signature;
// verification is the server's job. Opaque tokens and JWTs without an exp
// claim are treated as live.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
