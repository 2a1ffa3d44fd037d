package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Session holds the patient's token and the personaId returned at login.
// Values are mirrored into Storage so a new process can pick them up with
// Init. A Session is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	store     Storage
	now       func() time.Time
	token     string
	personaID string
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func NewSession(store Storage, opts ...Option) *Session {
	s := &Session{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads persisted values. Call it once before first use.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.load(ctx, KeyToken)
	if err != nil {
		return err
	}
	personaID, err := s.load(ctx, KeyPersonaID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.personaID = personaID
	s.mu.Unlock()
	return nil
}

func (s *Session) load(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return v, nil
}

// SetToken stores the token as given. An empty token clears it.
func (s *Session) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := s.store.Delete(ctx, KeyToken); err != nil {
			return fmt.Errorf("failed to clear token: %w", err)
		}
		s.token = ""
		return nil
	}
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	s.token = token
	return nil
}

// SetPersonaID stores the personaId returned by the login endpoint.
func (s *Session) SetPersonaID(ctx context.Context, id int64) error {
	v := strconv.FormatInt(id, 10)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, KeyPersonaID, v); err != nil {
		return fmt.Errorf("failed to store personaId: %w", err)
	}
	s.personaID = v
	return nil
}

// ClearPersonaID forgets the stored personaId so a new login cannot inherit
// the previous patient's id.
func (s *Session) ClearPersonaID(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, KeyPersonaID); err != nil {
		return fmt.Errorf("failed to clear personaId: %w", err)
	}
	s.personaID = ""
	return nil
}

// Logout clears the token and personaId. The backend is not contacted.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.personaID = ""
	if err := s.store.Delete(ctx, KeyToken, KeyPersonaID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Token returns the current token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is present and its exp claim lies
// strictly in the future. Malformed tokens are not authenticated.
func (s *Session) IsAuthenticated() bool {
	token := s.Token()
	if token == "" {
		return false
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return NotExpired(claims, s.now())
}

// Identity resolves the patient id from the token only.
func (s *Session) Identity() (int64, bool) {
	return ResolveIdentity(s.Token())
}

// PersonaID resolves the patient id from the token, falling back to the
// personaId stored at login.
func (s *Session) PersonaID() (int64, bool) {
	if id, ok := s.Identity(); ok {
		return id, true
	}
	s.mu.RLock()
	stored := s.personaID
	s.mu.RUnlock()
	if stored == "" {
		return 0, false
	}
	return CoerceID(stored)
}

// Principal decodes the current token.
func (s *Session) Principal() (*Principal, error) {
	return NewPrincipal(s.Token())
}
