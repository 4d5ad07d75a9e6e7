package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/guildboard/internal/domain"
	"github.com/pscheid92/guildboard/internal/platform/crypto"
	goredis "github.com/redis/go-redis/v9"
)

// SessionStore keeps sessions as JSON strings whose Redis TTL tracks the
// session expiry. Access tokens are sealed to the session ID.
type SessionStore struct {
	rdb    goredis.Cmdable
	clock  clockwork.Clock
	tokens crypto.TokenCipher
}

var _ domain.SessionStore = (*SessionStore)(nil)

func NewSessionStore(rdb goredis.Cmdable, clock clockwork.Clock, tokens crypto.TokenCipher) *SessionStore {
	return &SessionStore{rdb: rdb, clock: clock, tokens: tokens}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	data, ttl, err := s.encode(session)
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !s.clock.Now().Before(session.ExpiresAt) {
		return nil, domain.ErrSessionNotFound
	}

	token, err := s.tokens.Open(session.AccessToken, []byte(session.ID.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	session.AccessToken = token
	return &session, nil
}

// Update rewrites an existing session and returns ErrSessionNotFound if it
// has already expired or been deleted.
func (s *SessionStore) Update(ctx context.Context, session *domain.Session) error {
	data, ttl, err := s.encode(session)
	if err != nil {
		if errors.Is(err, errSessionExpired) {
			return domain.ErrSessionNotFound
		}
		return err
	}

	ok, err := s.rdb.SetXX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var errSessionExpired = errors.New("session already expired")

func (s *SessionStore) encode(session *domain.Session) ([]byte, time.Duration, error) {
	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil, 0, errSessionExpired
	}
	sealed, err := s.tokens.Seal(session.AccessToken, []byte(session.ID.String()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to seal access token: %w", err)
	}

	stored := *session
	stored.AccessToken = sealed
	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, ttl, nil
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}
