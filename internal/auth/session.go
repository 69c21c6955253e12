package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/lumina/internal/types"
)

// Session is one logged-in client. It is created at login and destroyed at
// logout; handlers pass it explicitly to anything that needs the identity.
type Session struct {
	ID        string     `json:"id"`
	User      types.User `json:"user"`
	Guest     bool       `json:"guest"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Config configures a Service.
type Config struct {
	TokenKey     string // Hex PASETO key; a random key is generated when empty
	SessionTTL   time.Duration
	GuestEnabled bool
	Logger       *slog.Logger

	// IdentityIssuer enables signature verification of identity tokens
	// against this OpenID issuer. Tokens are decoded unverified when empty.
	IdentityIssuer   string
	IdentityClientID string // Expected audience; unchecked when empty
}

// Service logs users in and authenticates session tokens.
type Service struct {
	tokens       *TokenService
	identity     *IdentityVerifier // nil when tokens are decoded unverified
	guestEnabled bool
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a session service.
func NewService(cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	key := cfg.TokenKey
	if key == "" {
		var err error
		if key, err = GenerateKey(); err != nil {
			return nil, err
		}
		logger.Warn("no auth token key configured, sessions will not survive a restart")
	}
	tokens, err := NewTokenService(key, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	var identity *IdentityVerifier
	if cfg.IdentityIssuer != "" {
		identity = NewIdentityVerifier(cfg.IdentityIssuer, cfg.IdentityClientID)
	} else {
		logger.Warn("identity tokens are not verified, keep the server on a loopback address")
	}

	return &Service{
		tokens:       tokens,
		identity:     identity,
		guestEnabled: cfg.GuestEnabled,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}, nil
}

// Login resolves an OpenID identity token and opens a session for its subject.
func (s *Service) Login(ctx context.Context, idToken string) (*Session, string, error) {
	var (
		user types.User
		err  error
	)
	if s.identity != nil {
		user, err = s.identity.Verify(ctx, idToken)
	} else {
		user, err = DecodeIdentity(idToken)
	}
	if err != nil {
		return nil, "", err
	}
	return s.open(user, false)
}

// VerifiesIdentity reports whether identity tokens are checked against an
// OpenID provider.
func (s *Service) VerifiesIdentity() bool {
	return s.identity != nil
}

// LoginGuest opens a session for the fixed guest identity.
func (s *Service) LoginGuest() (*Session, string, error) {
	if !s.guestEnabled {
		return nil, "", ErrGuestDisabled
	}
	return s.open(types.GuestUser(), true)
}

func (s *Service) open(user types.User, guest bool) (*Session, string, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}

	sess := &Session{
		ID:        claims.TokenID,
		User:      user,
		Guest:     guest,
		CreatedAt: claims.IssuedAt,
		ExpiresAt: claims.Expiration,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session opened", "session_id", sess.ID, "user_id", user.ID, "guest", guest)
	return sess, token, nil
}

// Authenticate verifies a session token and returns its live session.
// Tokens of logged-out or expired sessions are rejected.
func (s *Service) Authenticate(token string) (*Session, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	sess, ok := s.sessions[claims.TokenID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session ended", ErrInvalidToken)
	}
	if time.Now().After(sess.ExpiresAt) {
		s.Logout(sess.ID)
		return nil, fmt.Errorf("%w: session expired", ErrInvalidToken)
	}
	return sess, nil
}

// Logout destroys a session. Unknown ids are ignored.
func (s *Service) Logout(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		s.logger.Info("session closed", "session_id", sessionID)
	}
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Service) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for sessID, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, sessID)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep at the given interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

type sessionKey struct{}

// WithSession attaches a session to the context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session attached to ctx, or nil.
func SessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}
