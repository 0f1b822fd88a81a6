// Package tokenstore provides persistent storage for the AutoGmail bearer token.
//
// The token is an opaque string issued by the backend at the end of the OAuth flow.
// It is written once by the callback handler, read before every outgoing API
// request and removed on logout. Implementations:
//
//   - Memory: process-local storage, used in tests and for one-shot commands
//   - File: a 0600 file under the user cache directory (CLI and stdio MCP server)
//   - Redis: a shared key in Redis, for MCP servers running as several replicas
//   - Scoped: delegates to a store bound to the request context, used by the web
//     site where every browser keeps its own token in a cookie
//
// Inspect decodes (without verifying) the JWT claims of a token so that callers can
// show who is signed in and when the session ends. Tokens are never logged; use
// logging.SanitizeToken.
package tokenstore
