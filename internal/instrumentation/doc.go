// Package instrumentation provides OpenTelemetry metrics, tracing and audit logging
// for autogmail.
//
// # Metrics
//
// Site:
//   - http_requests_total: requests by method, route and status
//   - http_request_duration_seconds: request durations
//   - active_sessions: open dashboard sessions
//
// Backend API (outgoing):
//   - backend_requests_total: requests by operation, method, code and status
//   - backend_request_duration_seconds: request durations
//
// Sign-in:
//   - auth_events_total: login redirects, callbacks, missing tokens, logouts and
//     unauthorized backend responses
//
// MCP tools:
//   - mcp_tool_invocations_total: invocations by tool and status
//   - mcp_tool_duration_seconds: tool durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and for every backend
// request (backend.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: autogmail)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordBackendRequest(ctx, instrumentation.OperationListInbox, "GET", 200, time.Since(start))
package instrumentation
