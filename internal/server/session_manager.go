package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/autogmail/internal/dashboard"
	"github.com/teemow/autogmail/internal/instrumentation"
)

const (
	// DefaultSessionTimeout drops sessions idle for longer than this.
	DefaultSessionTimeout = 24 * time.Hour

	// DefaultCleanupInterval is how often idle sessions are collected.
	DefaultCleanupInterval = 10 * time.Minute
)

// sessionInfo tracks a dashboard session and its last use
type sessionInfo struct {
	session    *dashboard.Session
	lastAccess time.Time
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	// NewSession creates the dashboard session for a new token (required)
	NewSession func() *dashboard.Session

	// Timeout is the idle timeout (default: 24h)
	Timeout time.Duration

	// CleanupInterval is the collection period (default: 10m)
	CleanupInterval time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// SessionManager keeps one dashboard session per signed-in browser. Sessions are
// keyed by a hash of the auth token so the token itself is never held as a key.
type SessionManager struct {
	sessions       map[string]*sessionInfo
	mu             sync.Mutex
	newSession     func() *dashboard.Session
	cleanupTicker  *time.Ticker
	cleanupDone    chan struct{}
	stopOnce       sync.Once
	sessionTimeout time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
	now            func() time.Time
}

// NewSessionManager creates a session manager and starts its cleanup goroutine.
// Call Stop to end it.
func NewSessionManager(config SessionManagerConfig) *SessionManager {
	if config.Timeout <= 0 {
		config.Timeout = DefaultSessionTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	m := &SessionManager{
		sessions:       make(map[string]*sessionInfo),
		newSession:     config.NewSession,
		cleanupTicker:  time.NewTicker(config.CleanupInterval),
		cleanupDone:    make(chan struct{}),
		sessionTimeout: config.Timeout,
		logger:         config.Logger,
		metrics:        config.Metrics,
		now:            time.Now,
	}

	go m.cleanupExpiredSessions()

	return m
}

// SessionID returns the stable session ID for a token
func SessionID(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Get returns the session for token, creating it on first use
func (m *SessionManager) Get(ctx context.Context, token string) *dashboard.Session {
	id := SessionID(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if info, ok := m.sessions[id]; ok {
		info.lastAccess = m.now()
		return info.session
	}

	info := &sessionInfo{session: m.newSession(), lastAccess: m.now()}
	m.sessions[id] = info
	m.metrics.IncrementActiveSessions(ctx)
	return info.session
}

// Remove drops the session for token
func (m *SessionManager) Remove(ctx context.Context, token string) {
	id := SessionID(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.metrics.DecrementActiveSessions(ctx)
	}
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// expire removes sessions idle since before now minus the timeout and returns
// how many were removed
func (m *SessionManager) expire(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, info := range m.sessions {
		if now.Sub(info.lastAccess) > m.sessionTimeout {
			delete(m.sessions, id)
			m.metrics.DecrementActiveSessions(context.Background())
			expired++
		}
	}
	return expired
}

// cleanupExpiredSessions periodically removes expired sessions
func (m *SessionManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if n := m.expire(m.now()); n > 0 {
				m.logger.Info("Cleaned up expired sessions", "count", n)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)
	})
}
