package betmatic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// refreshMargin is how long before the assumed expiry a token is refreshed.
const refreshMargin = 5 * time.Minute

// Session manages the opaque Betmatic auth token: it logs in on first use,
// refreshes proactively before the configured TTL runs out, and re-logins
// once when the platform rejects a token mid-flight. Safe for concurrent use.
type Session struct {
	client   *Client
	email    string
	password string
	ttl      time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	token      string
	obtainedAt time.Time

	now func() time.Time
}

// NewSession creates a Session. ttl is how long a token is assumed valid;
// the platform does not expose an expiry, so the session refreshes ahead of
// this window.
func NewSession(client *Client, email, password string, ttl time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		client:   client,
		email:    email,
		password: password,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "betmatic_session")),
		now:      time.Now,
	}
}

// Token returns a token believed valid, logging in or refreshing as needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenLocked(ctx)
}

func (s *Session) tokenLocked(ctx context.Context) (string, error) {
	if s.token == "" {
		return s.loginLocked(ctx)
	}

	if s.now().Sub(s.obtainedAt) < s.ttl-refreshMargin {
		return s.token, nil
	}

	// Near expiry: refresh, falling back to a fresh login if the platform
	// rejects the old token.
	fresh, err := s.client.Refresh(ctx, s.token)
	if err != nil {
		s.logger.Warn("token refresh failed, re-logging in", slog.String("error", err.Error()))
		return s.loginLocked(ctx)
	}
	s.token = fresh
	s.obtainedAt = s.now()
	s.logger.Debug("token refreshed")
	return s.token, nil
}

func (s *Session) loginLocked(ctx context.Context) (string, error) {
	token, err := s.client.Login(ctx, s.email, s.password)
	if err != nil {
		return "", fmt.Errorf("betmatic: authenticate: %w", err)
	}
	s.token = token
	s.obtainedAt = s.now()
	s.logger.Info("logged in")
	return token, nil
}

// Invalidate discards the cached token so the next Token call logs in again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.obtainedAt = time.Time{}
}

// Authenticated runs fn with a valid token, retrying exactly once with a
// fresh login when fn fails with domain.ErrUnauthorized. Any other failure is
// returned as-is.
func (s *Session) Authenticated(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, token)
	if err == nil || !errors.Is(err, domain.ErrUnauthorized) {
		return err
	}

	s.logger.Warn("token rejected, re-authenticating once", slog.String("error", err.Error()))
	s.Invalidate()
	token, err = s.Token(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, token)
}
