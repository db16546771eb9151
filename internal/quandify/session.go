package quandify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// tokenLifetime is how long a freshly minted id token is trusted. The vendor
// issues tokens valid for 24 hours; the cache treats them as expired an hour
// early.
const tokenLifetime = 23 * time.Hour

// expiryThreshold is the remaining validity below which a cached token is
// treated as expired.
const expiryThreshold = 30 * time.Second

// session caches the short-lived id token for one set of credentials. Tokens
// live only in memory and are re-minted on demand.
type session struct {
	mint func(context.Context) (*oauth2.Token, error)

	mu    sync.Mutex
	token *oauth2.Token
}

func newSession(mint func(context.Context) (*oauth2.Token, error)) *session {
	return &session{mint: mint}
}

// bearer returns a token string that is valid for at least expiryThreshold,
// minting a new one if the cache is empty or near expiry. The mutex is held
// across the mint round-trip, so concurrent callers share a single login.
func (s *session) bearer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.token.AccessToken != "" && time.Until(s.token.Expiry) > expiryThreshold {
		return s.token.AccessToken, nil
	}

	token, err := s.mint(ctx)
	if err != nil {
		s.token = nil
		authFailure.Inc()
		tokenValid.Set(0)
		return "", err
	}

	s.token = token
	authSuccess.Inc()
	tokenValid.Set(1)
	return token.AccessToken, nil
}

// invalidate drops the cached token so the next bearer call mints a fresh
// one. Called when the API rejects a token before its expected expiry.
func (s *session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	tokenValid.Set(0)
}
