package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/eduhub/marketplace-api/utils/cache"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record behind a session token
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// SessionStore persists sessions. Implementations must drop expired sessions.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID uint) error
	PruneExpired(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	Name() string
}

// RedisSessionStore keeps sessions in Redis so every API instance shares them
type RedisSessionStore struct {
	cache *cache.RedisCache
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(c *cache.RedisCache) *RedisSessionStore {
	return &RedisSessionStore{cache: c}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(userID uint) string {
	return "user_sessions:" + strconv.FormatUint(uint64(userID), 10)
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	if err := s.cache.SetJSON(ctx, sessionKey(sess.ID), sess, ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	indexKey := userSessionsKey(sess.UserID)
	if err := s.cache.SAdd(ctx, indexKey, sess.ID); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	// The index outlives every member session
	return s.cache.Expire(ctx, indexKey, ttl)
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := s.cache.GetJSON(ctx, sessionKey(id), &sess); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := s.cache.Delete(ctx, sessionKey(id)); err != nil {
		return err
	}
	return s.cache.SRem(ctx, userSessionsKey(sess.UserID), id)
}

func (s *RedisSessionStore) DeleteUserSessions(ctx context.Context, userID uint) error {
	indexKey := userSessionsKey(userID)
	ids, err := s.cache.SMembers(ctx, indexKey)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, indexKey)
	return s.cache.Delete(ctx, keys...)
}

// PruneExpired is a no-op: Redis expires session keys itself
func (s *RedisSessionStore) PruneExpired(context.Context) (int64, error) {
	return 0, nil
}

func (s *RedisSessionStore) Count(ctx context.Context) (int64, error) {
	return s.cache.CountKeys(ctx, sessionKey("*"))
}

func (s *RedisSessionStore) Name() string {
	return "redis"
}

// MemorySessionStore is a process-local store used when Redis is unavailable and in tests
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) DeleteUserSessions(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// PruneExpired drops every expired session, including ones never read again
func (s *MemorySessionStore) PruneExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed int64
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of unexpired sessions
func (s *MemorySessionStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var n int64
	for _, sess := range s.sessions {
		if now.Before(sess.ExpiresAt) {
			n++
		}
	}
	return n, nil
}

func (s *MemorySessionStore) Name() string {
	return "memory"
}

// SessionManager issues and resolves signed session tokens
type SessionManager struct {
	store SessionStore
	jwt   *JWTManager
	ttl   time.Duration
}

// NewSessionManager creates a session manager
func NewSessionManager(store SessionStore, jwtManager *JWTManager, ttl time.Duration) *SessionManager {
	return &SessionManager{store: store, jwt: jwtManager, ttl: ttl}
}

// Store exposes the underlying session store
func (m *SessionManager) Store() SessionStore {
	return m.store
}

// Create starts a session for the user and returns its signed token
func (m *SessionManager) Create(ctx context.Context, userID uint, ip, userAgent string) (string, *Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return "", nil, err
	}

	token, err := m.jwt.GenerateSessionToken(userID, sess.ID, now, sess.ExpiresAt)
	if err != nil {
		_ = m.store.Delete(ctx, sess.ID)
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, sess, nil
}

// Resolve validates a token and returns its live session
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, ErrInvalidClaims
	}
	return sess, nil
}

// Destroy removes the session behind id
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// DestroyUserSessions signs the user out everywhere
func (m *SessionManager) DestroyUserSessions(ctx context.Context, userID uint) error {
	return m.store.DeleteUserSessions(ctx, userID)
}
