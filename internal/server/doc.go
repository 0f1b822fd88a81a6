// Package server provides the shared runtime pieces of the site and the MCP
// server.
//
// ServerContext carries the backend client, token store, metrics and audit
// logger to every handler and tool. SessionManager keeps one dashboard.Session
// per signed-in browser, keyed by a SHA-256 hash of the auth token, and drops
// idle sessions periodically. HealthChecker serves /healthz, /readyz and
// /healthz/detailed. MetricsServer exposes Prometheus metrics on a dedicated
// port.
//
// MCPHTTPServer serves the MCP streamable HTTP transport on /mcp. The caller's
// bearer token is bound to the request context so tools act on the caller's
// behalf.
package server
