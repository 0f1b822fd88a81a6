package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// Options configures a ServerContext.
type Options struct {
	// Backend is the backend API client (required)
	Backend *backend.Client

	// Store holds the auth token read by Backend's requests
	Store tokenstore.TokenStore

	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger

	// AllowWrites enables tools that change the user's mailbox or knowledge base
	AllowWrites bool
}

// ServerContext holds the shared dependencies of the site and the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	backend     *backend.Client
	store       tokenstore.TokenStore
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	allowWrites bool
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Backend == nil {
		return nil, errors.New("backend client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = tokenstore.NewMemory()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		backend:     opts.Backend,
		store:       store,
		metrics:     opts.Metrics,
		auditLogger: opts.AuditLogger,
		logger:      logger,
		allowWrites: opts.AllowWrites,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Backend returns the backend API client
func (sc *ServerContext) Backend() *backend.Client {
	return sc.backend
}

// TokenStore returns the token store used by the backend client
func (sc *ServerContext) TokenStore() tokenstore.TokenStore {
	return sc.store
}

// Metrics returns the metrics recorder, nil when instrumentation is disabled
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the tool audit logger, nil when disabled
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// AllowWrites reports whether write tools are enabled
func (sc *ServerContext) AllowWrites() bool {
	return sc.allowWrites
}

// SignedInSubject returns the subject of the stored token, or "" when there is
// no token or it is not a JWT. The token is not verified.
func (sc *ServerContext) SignedInSubject(ctx context.Context) string {
	token, err := sc.store.Get(ctx)
	if err != nil || token == "" {
		return ""
	}
	claims, err := tokenstore.Inspect(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
