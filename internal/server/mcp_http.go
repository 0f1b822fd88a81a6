package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// MCPEndpointPath is where the streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// MCPHTTPServerConfig configures an MCPHTTPServer.
type MCPHTTPServerConfig struct {
	// Addr is the listen address (e.g. ":8080")
	Addr string

	// PublicURL is the externally visible base URL. Bearer tokens are only
	// accepted when it is HTTPS or a loopback address.
	PublicURL string

	// DisableStreaming turns off SSE streaming of responses
	DisableStreaming bool

	Health  *HealthChecker
	Metrics *instrumentation.Metrics
}

// MCPHTTPServer serves an MCP server over streamable HTTP.
//
// A request carrying "Authorization: Bearer <token>" runs its tools with that
// token bound to the request context, so the backend sees the caller rather
// than the token stored on the host. Requests without one use the stored token.
type MCPHTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	config     MCPHTTPServerConfig
	httpServer *http.Server
	mu         sync.Mutex
	listenAddr string
}

// NewMCPHTTPServer creates a streamable HTTP server for mcpServer.
func NewMCPHTTPServer(mcpServer *mcpserver.MCPServer, config MCPHTTPServerConfig) (*MCPHTTPServer, error) {
	if mcpServer == nil {
		return nil, errors.New("mcp server is required")
	}
	if config.PublicURL != "" {
		if err := validateHTTPSRequirement(config.PublicURL); err != nil {
			return nil, err
		}
	}
	return &MCPHTTPServer{mcpServer: mcpServer, config: config}, nil
}

// Handler returns the HTTP handler serving /mcp and the health endpoints.
func (s *MCPHTTPServer) Handler() http.Handler {
	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(MCPEndpointPath),
		mcpserver.WithHTTPContextFunc(bindBearerToken),
	}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, instrumentHTTP(s.config.Metrics, MCPEndpointPath, streamable))
	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}
	return mux
}

// Start listens on the configured address and serves until Shutdown.
func (s *MCPHTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.listenAddr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	return srv.Serve(ln)
}

// ListenAddr returns the bound address once Start is listening.
func (s *MCPHTTPServer) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Shutdown gracefully shuts down the server
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// bindBearerToken binds the request's bearer token to the tool context. A
// request without one gets an empty store, so it never falls back to the
// token saved on the host.
func bindBearerToken(ctx context.Context, r *http.Request) context.Context {
	store := tokenstore.NewMemory()
	if token := BearerToken(r); token != "" {
		_ = store.Set(ctx, token)
	}
	return tokenstore.WithStore(ctx, store)
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func instrumentHTTP(metrics *instrumentation.Metrics, path string, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

// validateHTTPSRequirement rejects plain HTTP URLs except loopback addresses,
// since bearer tokens would travel in clear text.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("bearer tokens require HTTPS (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
