package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	SetHashCost(bcrypt.MinCost)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong horse"), ErrPasswordMismatch)

	demo, err := HashPasswordUnchecked("abc")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(demo, "abc"))

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager(JWTConfig{Secret: "test-secret", Issuer: "eduhub"})
	now := time.Now()

	token, err := manager.GenerateSessionToken(42, "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "session-1", claims.ID)

	expired, err := manager.GenerateSessionToken(42, "session-1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = manager.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTManager(JWTConfig{Secret: "other-secret", Issuer: "eduhub"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewJWTManager(JWTConfig{Secret: "test-secret", Issuer: "elsewhere"})
	_, err = wrongIssuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "a", UserID: 1, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "b", UserID: 1, ExpiresAt: now.Add(2 * time.Hour)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "c", UserID: 2, ExpiresAt: now.Add(2 * time.Hour)}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	now = now.Add(90 * time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.DeleteUserSessions(ctx, 1))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, uint(2), sess.UserID)
}

func TestMemorySessionStorePruneExpired(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "a", UserID: 1, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "b", UserID: 2, ExpiresAt: now.Add(3 * time.Hour)}))

	now = now.Add(2 * time.Hour)
	removed, err := store.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, store.sessions, 1)

	removed, err = store.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()
	manager := NewSessionManager(NewMemorySessionStore(), NewJWTManager(JWTConfig{Secret: "s", Issuer: "eduhub"}), time.Hour)

	token, sess, err := manager.Create(ctx, 7, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, uint(7), sess.UserID)

	resolved, err := manager.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resolved.ID)

	require.NoError(t, manager.Destroy(ctx, sess.ID))
	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	token, _, err = manager.Create(ctx, 7, "", "")
	require.NoError(t, err)
	require.NoError(t, manager.DestroyUserSessions(ctx, 7))
	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
