package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/autogmail/internal/config"
	"github.com/teemow/autogmail/internal/endpoint"
	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/logging"
	"github.com/teemow/autogmail/internal/server"
)

// telemetry bundles the instrumentation provider and the optional metrics server.
type telemetry struct {
	provider      *instrumentation.Provider
	metricsServer *server.MetricsServer
	auditConfig   instrumentation.AuditLoggingConfig
	logger        *slog.Logger
}

// Telemetry components.
const (
	componentSite = "site"
	componentMCP  = "mcp"
)

// startTelemetry initializes OpenTelemetry and, when enabled, starts the
// Prometheus metrics server. The caller must call shutdown.
func startTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger, component string, ep endpoint.Config, serveMetrics bool) (*telemetry, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Component = component
	instrConfig.BackendURL = endpoint.NewResolver(ep).BaseURL()
	instrConfig.Logger = logger

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	t := &telemetry{provider: provider, auditConfig: instrConfig.AuditLogging, logger: logger}

	if !serveMetrics || !cfg.Metrics.Enabled || provider.PrometheusHandler() == nil {
		return t, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Metrics.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		t.shutdown()
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", slog.String("addr", metricsServer.ListenAddr()))
	case err := <-metricsErr:
		t.shutdown()
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		t.shutdown()
		return nil, errors.New("metrics server startup timed out")
	}
	t.metricsServer = metricsServer
	return t, nil
}

// metrics returns the metrics recorder, nil when instrumentation is disabled.
func (t *telemetry) metrics() *instrumentation.Metrics {
	if !t.provider.Enabled() {
		return nil
	}
	return t.provider.Metrics()
}

// auditLogger returns the tool audit logger, nil when instrumentation is disabled.
func (t *telemetry) auditLogger() *instrumentation.AuditLogger {
	if !t.provider.Enabled() {
		return nil
	}
	return instrumentation.NewAuditLoggerWithConfig(t.logger, t.auditConfig)
}

func (t *telemetry) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if t.metricsServer != nil {
		if err := t.metricsServer.Shutdown(ctx); err != nil {
			t.logger.Warn("error during metrics server shutdown", logging.Err(err))
		}
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		t.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}
