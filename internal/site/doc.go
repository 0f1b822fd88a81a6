// Package site serves the AutoGmail web dashboard with gin.
//
// The browser's auth token lives in an HttpOnly cookie named "token". For
// every request the cookie value is bound to the request context as a
// tokenstore.Memory, so the shared backend client (built on a
// tokenstore.Scoped store) authenticates as the browser that made the request.
//
// Pages are server-rendered from embedded html/template files. Dashboard
// actions are plain form posts that redirect back to the dashboard.
package site
