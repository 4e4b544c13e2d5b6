package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revue/internal/store"
)

func newTestSessions(t *testing.T, ttl time.Duration) *Sessions {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessions(db, ttl)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestSessions(t, time.Hour)
	ctx := context.Background()

	token, err := s.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := s.UserID(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	require.NoError(t, s.Revoke(ctx, token))
	_, err = s.UserID(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestUnknownToken(t *testing.T) {
	s := newTestSessions(t, time.Hour)
	_, err := s.UserID(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestExpiredSession(t *testing.T) {
	s := newTestSessions(t, time.Hour)
	ctx := context.Background()

	token, err := s.Create(ctx, 7)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.UserID(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	// The expired row is gone even after the clock goes back.
	s.now = time.Now
	_, err = s.UserID(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTokensAreUnique(t *testing.T) {
	s := newTestSessions(t, time.Hour)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, err := s.Create(ctx, int64(i))
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(10, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "burst attempt %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4"))

	// Another address has its own budget.
	assert.True(t, l.Allow("5.6.7.8"))
}

func TestLoginLimiterDefaults(t *testing.T) {
	l := NewLoginLimiter(0, 0)
	assert.True(t, l.Allow("1.2.3.4"))
}
