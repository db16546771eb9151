package quandify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestSessionCachesToken(t *testing.T) {
	var mints int
	s := newSession(func(context.Context) (*oauth2.Token, error) {
		mints++
		return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token, err := s.bearer(ctx)
		if err != nil {
			t.Fatalf("bearer: %v", err)
		}
		if token != "token" {
			t.Fatalf("unexpected token %q", token)
		}
	}
	if mints != 1 {
		t.Fatalf("expected a single mint, got %d", mints)
	}
}

func TestSessionRemintsNearExpiry(t *testing.T) {
	var mints int
	s := newSession(func(context.Context) (*oauth2.Token, error) {
		mints++
		// Inside the expiry threshold, so never reused.
		return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Second)}, nil
	})

	ctx := context.Background()
	if _, err := s.bearer(ctx); err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if _, err := s.bearer(ctx); err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if mints != 2 {
		t.Fatalf("expected re-mint near expiry, got %d mints", mints)
	}
}

func TestSessionMintFailureCachesNothing(t *testing.T) {
	var mints int
	s := newSession(func(context.Context) (*oauth2.Token, error) {
		mints++
		return nil, errors.New("login failed")
	})

	ctx := context.Background()
	if _, err := s.bearer(ctx); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.bearer(ctx); err == nil {
		t.Fatal("expected error")
	}
	if mints != 2 {
		t.Fatalf("a failed mint must not be cached, got %d mints", mints)
	}
}

func TestSessionInvalidate(t *testing.T) {
	var mints int
	s := newSession(func(context.Context) (*oauth2.Token, error) {
		mints++
		return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}, nil
	})

	ctx := context.Background()
	if _, err := s.bearer(ctx); err != nil {
		t.Fatalf("bearer: %v", err)
	}
	s.invalidate()
	if _, err := s.bearer(ctx); err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if mints != 2 {
		t.Fatalf("expected mint after invalidate, got %d", mints)
	}
}

func TestSessionSingleFlight(t *testing.T) {
	var mints atomic.Int32
	s := newSession(func(context.Context) (*oauth2.Token, error) {
		mints.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}, nil
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.bearer(ctx); err != nil {
				t.Errorf("bearer: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := mints.Load(); got != 1 {
		t.Fatalf("concurrent callers must share one mint, got %d", got)
	}
}
