package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/autogmail/internal/config"
	"github.com/teemow/autogmail/internal/resources"
	"github.com/teemow/autogmail/internal/server"
	"github.com/teemow/autogmail/internal/tools/knowledge_tools"
	"github.com/teemow/autogmail/internal/tools/mail_tools"
)

// Supported MCP transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newMCPCmd() *cobra.Command {
	var (
		transport        string
		httpAddr         string
		publicURL        string
		yolo             bool
		disableStreaming bool
		metricsEnabled   bool
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server so AI assistants can list
the inbox, read emails and draft replies through the AutoGmail backend.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Authentication:
  Tools use the token saved by 'autogmail login'. Over streamable-http a client
  may send "Authorization: Bearer <token>" to act as a different user.

Safety Mode:
  By default, the server operates in read-only mode, providing only safe operations.
  Use --yolo to enable write operations (saving drafts, uploading documents,
  syncing sent mail).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if f := cmd.Flags(); f.Changed("metrics-enabled") {
				cfg.Metrics.Enabled = metricsEnabled
			}
			if f := cmd.Flags(); f.Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if publicURL == "" {
				publicURL = os.Getenv("MCP_PUBLIC_URL")
			}

			return runMCP(cmd.Context(), cfg, mcpOptions{
				transport:        transport,
				httpAddr:         httpAddr,
				publicURL:        publicURL,
				readOnly:         !yolo,
				disableStreaming: disableStreaming,
			})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8081", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "Public URL of the MCP server. Must be HTTPS unless it is a loopback address. Can also use MCP_PUBLIC_URL env var.")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (saving drafts, uploading documents, syncing sent mail). Default is read-only mode.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

type mcpOptions struct {
	transport        string
	httpAddr         string
	publicURL        string
	readOnly         bool
	disableStreaming bool
}

func runMCP(parent context.Context, cfg *config.Config, opts mcpOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
	if parent == nil {
		parent = context.Background()
	}
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the stdio protocol, logs always go to stderr
	logger, err := setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	tel, err := startTelemetry(ctx, cfg, logger, componentMCP, cfg.Endpoint(), opts.transport != transportStdio)
	if err != nil {
		return err
	}
	defer tel.shutdown()

	a, err := newApp(ctx, cfg, logger, storeModeFor(opts.transport), cfg.Endpoint(), tel.metrics())
	if err != nil {
		return err
	}
	defer a.Close()

	sc, err := server.NewServerContext(ctx, server.Options{
		Backend:     a.backend,
		Store:       a.clientStore,
		Metrics:     tel.metrics(),
		AuditLogger: tel.auditLogger(),
		Logger:      logger,
		AllowWrites: !opts.readOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, opts.readOnly); err != nil {
		return err
	}

	if opts.readOnly {
		logger.Info("starting MCP server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting MCP server with WRITE operations enabled (--yolo flag is set)")
	}

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(ctx, mcpSrv, sc, opts, tel, logger)
	}
}

// storeModeFor returns the token store mode of a transport. Over HTTP every
// caller brings its own token; the token saved on the host serves stdio only.
func storeModeFor(transport string) storeMode {
	if transport == transportStreamableHTTP {
		return storeScopedEmpty
	}
	return storeScopedPersistent
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("autogmail", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Mail",
			register: func() error {
				return mail_tools.RegisterMailTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Knowledge Base",
			register: func() error {
				return knowledge_tools.RegisterKnowledgeTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "User Resources",
			register: func() error {
				return resources.RegisterUserResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts mcpOptions, tel *telemetry, logger *slog.Logger) error {
	health := server.NewHealthChecker(sc, nil)
	httpSrv, err := server.NewMCPHTTPServer(mcpSrv, server.MCPHTTPServerConfig{
		Addr:             opts.httpAddr,
		PublicURL:        opts.publicURL,
		DisableStreaming: opts.disableStreaming,
		Health:           health,
		Metrics:          tel.metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP HTTP server: %w", err)
	}

	logger.Info("streamable HTTP server starting",
		slog.String("addr", opts.httpAddr),
		slog.String("endpoint", server.MCPEndpointPath),
		slog.String("backend", sc.Backend().BaseURL()))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
