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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/teemow/autogmail/internal/config"
	"github.com/teemow/autogmail/internal/dashboard"
	"github.com/teemow/autogmail/internal/endpoint"
	"github.com/teemow/autogmail/internal/server"
	"github.com/teemow/autogmail/internal/site"
)

func newServeCmd() *cobra.Command {
	var (
		addr           string
		publicURL      string
		demo           bool
		inboxSize      int
		secureCookies  bool
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long: `Start the AutoGmail web dashboard.

The dashboard offers the landing page, Google sign-in through the backend and
the inbox view where replies are drafted, edited and saved to Gmail.

Backend URL:
  --api-url (or AUTOGMAIL_API_URL) wins. Otherwise the dashboard's own public
  origin (scheme and host of --public-url or AUTOGMAIL_PUBLIC_URL) is used, then
  `+endpoint.DefaultBaseURL+`.
  "/api/v1" is appended to the first two when missing.

Metrics are served on a dedicated port (default :9090) at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("addr") {
				cfg.Site.Addr = addr
			}
			if f.Changed("public-url") {
				cfg.Site.PublicURL = publicURL
			}
			if f.Changed("demo") {
				cfg.Site.DemoFallback = demo
			}
			if f.Changed("inbox-size") {
				cfg.Site.InboxSize = inboxSize
			}
			if f.Changed("secure-cookies") {
				cfg.Site.SecureCookies = secureCookies
			}
			if f.Changed("metrics-enabled") {
				cfg.Metrics.Enabled = metricsEnabled
			}
			if f.Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultSiteAddr, "Dashboard listen address. Can also use AUTOGMAIL_ADDR env var.")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "Public URL of the dashboard, used as the backend origin when no API URL is set. Can also use AUTOGMAIL_PUBLIC_URL env var.")
	cmd.Flags().BoolVar(&demo, "demo", false, "Show demo emails and drafts when the backend is unreachable. Can also use AUTOGMAIL_DEMO_FALLBACK env var.")
	cmd.Flags().IntVar(&inboxSize, "inbox-size", 0, "Number of inbox emails to load (default: backend default)")
	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "Mark the token cookie Secure (enable behind HTTPS). Can also use AUTOGMAIL_SECURE_COOKIES env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use AUTOGMAIL_METRICS_ADDR env var.")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := setupLogger(cfg, nil)
	if err != nil {
		return err
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	tel, err := startTelemetry(ctx, cfg, logger, componentSite, cfg.SiteEndpoint(), true)
	if err != nil {
		return err
	}
	defer tel.shutdown()

	a, err := newApp(ctx, cfg, logger, storeScopedEmpty, cfg.SiteEndpoint(), tel.metrics())
	if err != nil {
		return err
	}
	defer a.Close()

	sc, err := server.NewServerContext(ctx, server.Options{
		Backend: a.backend,
		Store:   a.clientStore,
		Metrics: tel.metrics(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	sessions := server.NewSessionManager(server.SessionManagerConfig{
		NewSession: func() *dashboard.Session {
			return dashboard.NewSession(a.backend, dashboard.Options{
				DemoFallback: cfg.Site.DemoFallback,
				InboxSize:    cfg.Site.InboxSize,
				Logger:       logger,
			})
		},
		Timeout: cfg.Site.SessionIdleTimeout,
		Logger:  logger,
		Metrics: tel.metrics(),
	})
	defer sessions.Stop()

	health := server.NewHealthChecker(sc, sessions)
	dash, err := site.New(site.Config{
		Server:        sc,
		Sessions:      sessions,
		Health:        health,
		SecureCookies: cfg.Site.SecureCookies,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Site.Addr,
		Handler:           dash.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("dashboard starting",
		slog.String("addr", cfg.Site.Addr),
		slog.String("backend", a.resolver.BaseURL()),
		slog.String("backend_source", string(a.resolver.Source())),
		slog.Bool("demo_fallback", cfg.Site.DemoFallback))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping dashboard")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down dashboard: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("dashboard stopped with error: %w", err)
		}
	}

	logger.Info("dashboard gracefully stopped")
	return nil
}
