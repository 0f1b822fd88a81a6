package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/autogmail/internal/dashboard"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *int) {
	t.Helper()
	created := 0
	m := NewSessionManager(SessionManagerConfig{
		NewSession: func() *dashboard.Session {
			created++
			return dashboard.NewSession(nil, dashboard.Options{})
		},
		Timeout: time.Hour,
	})
	t.Cleanup(m.Stop)
	return m, &created
}

func TestSessionID(t *testing.T) {
	a := SessionID("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, SessionID("token-a"))
	assert.NotEqual(t, a, SessionID("token-b"))
	assert.NotContains(t, a, "token-a")
}

func TestSessionManager_GetReusesSession(t *testing.T) {
	m, created := newTestSessionManager(t)
	ctx := context.Background()

	s1 := m.Get(ctx, "token-a")
	s2 := m.Get(ctx, "token-a")
	s3 := m.Get(ctx, "token-b")

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, *created)
	assert.Equal(t, 2, m.Len())
}

func TestSessionManager_Remove(t *testing.T) {
	m, created := newTestSessionManager(t)
	ctx := context.Background()

	first := m.Get(ctx, "token-a")
	m.Remove(ctx, "token-a")
	m.Remove(ctx, "unknown")
	assert.Equal(t, 0, m.Len())

	second := m.Get(ctx, "token-a")
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, *created)
}

func TestSessionManager_Expire(t *testing.T) {
	m, _ := newTestSessionManager(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	m.Get(ctx, "old")

	m.now = func() time.Time { return base.Add(50 * time.Minute) }
	m.Get(ctx, "fresh")

	require.Equal(t, 1, m.expire(base.Add(61*time.Minute)))
	assert.Equal(t, 1, m.Len())

	// Touching a session keeps it alive.
	m.now = func() time.Time { return base.Add(100 * time.Minute) }
	m.Get(ctx, "fresh")
	assert.Equal(t, 0, m.expire(base.Add(150*time.Minute)))
}

func TestSessionManager_StopIsIdempotent(t *testing.T) {
	m, _ := newTestSessionManager(t)
	m.Stop()
	m.Stop()
}
