package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/tokenstore"
)

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{
			name:    "valid HTTPS URL",
			baseURL: "https://mcp.example.com",
			wantErr: false,
		},
		{
			name:    "valid HTTP localhost",
			baseURL: "http://localhost:8080",
			wantErr: false,
		},
		{
			name:    "valid HTTP 127.0.0.1",
			baseURL: "http://127.0.0.1:8080",
			wantErr: false,
		},
		{
			name:    "valid HTTP ::1 (IPv6 loopback)",
			baseURL: "http://[::1]:8080",
			wantErr: false,
		},
		{
			name:    "invalid HTTP non-localhost",
			baseURL: "http://mcp.example.com",
			wantErr: true,
		},
		{
			name:    "invalid HTTP with localhost substring",
			baseURL: "http://localhost.example.com",
			wantErr: true,
		},
		{
			name:    "invalid HTTP with 127.0.0.1 in domain",
			baseURL: "http://127.0.0.1.example.com",
			wantErr: true,
		},
		{
			name:    "empty URL",
			baseURL: "",
			wantErr: true,
		},
		{
			name:    "invalid URL format",
			baseURL: "not a url",
			wantErr: true,
		},
		{
			name:    "invalid scheme",
			baseURL: "ftp://example.com",
			wantErr: true,
		},
		{
			name:    "HTTPS with path",
			baseURL: "https://mcp.example.com/api",
			wantErr: false,
		},
		{
			name:    "HTTPS with port",
			baseURL: "https://mcp.example.com:8443",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPSRequirement(tt.baseURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateHTTPSRequirement() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	recorder := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: recorder, status: http.StatusOK}

	if rec.status != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.status, http.StatusOK)
	}

	rec.WriteHeader(http.StatusCreated)
	if rec.status != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.status, http.StatusCreated)
	}
	if recorder.Code != http.StatusCreated {
		t.Errorf("recorder.Code = %d, want %d", recorder.Code, http.StatusCreated)
	}
}

func TestInstrumentHTTP_NoMetrics(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	})

	handler := instrumentHTTP(nil, MCPEndpointPath, next)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil))

	if !called {
		t.Error("expected next handler to be called")
	}
}

func TestInstrumentHTTP_WithMetrics(t *testing.T) {
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	rec := httptest.NewRecorder()
	instrumentHTTP(metrics, MCPEndpointPath, next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("Code = %d, want %d", rec.Code, http.StatusAccepted)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lower case scheme", header: "bearer abc", want: "abc"},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "no header", header: "", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(req); got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBindBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil)
	ctx := bindBearerToken(context.Background(), req)
	anon, ok := tokenstore.FromContext(ctx)
	if !ok {
		t.Fatal("expected an empty store bound without an Authorization header")
	}
	if got, _ := anon.Get(ctx); got != "" {
		t.Errorf("anonymous token = %q, want empty", got)
	}

	req.Header.Set("Authorization", "Bearer caller-token")
	ctx = bindBearerToken(context.Background(), req)
	store, ok := tokenstore.FromContext(ctx)
	if !ok {
		t.Fatal("expected a store bound to the context")
	}
	if got, _ := store.Get(ctx); got != "caller-token" {
		t.Errorf("bound token = %q, want %q", got, "caller-token")
	}

	// the shared scoped store resolves to the caller's token
	scoped := tokenstore.NewScoped(tokenstore.NewMemory())
	if got, _ := scoped.Get(ctx); got != "caller-token" {
		t.Errorf("scoped token = %q, want %q", got, "caller-token")
	}
}

func TestNewMCPHTTPServer(t *testing.T) {
	if _, err := NewMCPHTTPServer(nil, MCPHTTPServerConfig{}); err == nil {
		t.Error("expected error for nil mcp server")
	}

	mcpSrv := mcpserver.NewMCPServer("test", "0.0.0")
	if _, err := NewMCPHTTPServer(mcpSrv, MCPHTTPServerConfig{PublicURL: "http://mcp.example.com"}); err == nil {
		t.Error("expected error for plain HTTP public URL")
	}
	if _, err := NewMCPHTTPServer(mcpSrv, MCPHTTPServerConfig{PublicURL: "https://mcp.example.com"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMCPHTTPServer_HealthEndpoints(t *testing.T) {
	sc := newTestServerContext(t)
	mcpSrv := mcpserver.NewMCPServer("test", "0.0.0")
	srv, err := NewMCPHTTPServer(mcpSrv, MCPHTTPServerConfig{Health: NewHealthChecker(sc, nil)})
	if err != nil {
		t.Fatalf("NewMCPHTTPServer() error = %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz Code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMCPHTTPServer_StartAndShutdown(t *testing.T) {
	mcpSrv := mcpserver.NewMCPServer("test", "0.0.0")
	srv, err := NewMCPHTTPServer(mcpSrv, MCPHTTPServerConfig{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewMCPHTTPServer() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.ListenAddr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ListenAddr() == "" {
		t.Fatal("server did not start listening")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != http.ErrServerClosed {
		t.Errorf("Start() error = %v, want %v", err, http.ErrServerClosed)
	}
}

func TestBindBearerToken_AnonymousRequestSkipsHostToken(t *testing.T) {
	var sawAuth []string
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer backendSrv.Close()

	host := tokenstore.NewMemory()
	if err := host.Set(context.Background(), "host-secret"); err != nil {
		t.Fatal(err)
	}
	api, err := apiclient.New(apiclient.Config{
		BaseURL: backendSrv.URL + "/api/v1",
		Store:   tokenstore.NewScoped(host),
	})
	if err != nil {
		t.Fatal(err)
	}

	anonymous := httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil)
	if _, err := api.Get(bindBearerToken(context.Background(), anonymous), "/gmail/inbox"); err != nil {
		t.Fatal(err)
	}

	caller := httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil)
	caller.Header.Set("Authorization", "Bearer caller-token")
	if _, err := api.Get(bindBearerToken(context.Background(), caller), "/gmail/inbox"); err != nil {
		t.Fatal(err)
	}

	if len(sawAuth) != 2 {
		t.Fatalf("backend saw %d requests, want 2", len(sawAuth))
	}
	if sawAuth[0] != "" {
		t.Errorf("anonymous request sent Authorization %q, want none", sawAuth[0])
	}
	if sawAuth[1] != "Bearer caller-token" {
		t.Errorf("caller request sent Authorization %q, want %q", sawAuth[1], "Bearer caller-token")
	}
}
