package site

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/tokenstore"
)

const (
	// CookieName is the cookie holding the auth token.
	CookieName = "token"

	// ctxKeyToken is the gin context key of the request's token.
	ctxKeyToken = "autogmail.token"

	unmatchedRoute = "unmatched"
)

// bindToken binds the token cookie to the request context so backend calls made
// while handling the request carry it.
func bindToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(CookieName)

		store := tokenstore.NewMemory()
		if token != "" {
			_ = store.Set(c.Request.Context(), token)
		}
		c.Request = c.Request.WithContext(tokenstore.WithStore(c.Request.Context(), store))
		c.Set(ctxKeyToken, token)
		c.Next()
	}
}

// requestToken returns the token bound by bindToken.
func requestToken(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}

// requireToken sends visitors without a token to the login page.
func requireToken(metrics *instrumentation.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestToken(c) == "" {
			metrics.RecordAuthEvent(c.Request.Context(), instrumentation.AuthEventMissingToken)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// observe records request metrics and logs each request. Routes are labelled by
// their pattern to keep metric cardinality bounded.
func observe(logger *slog.Logger, metrics *instrumentation.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		metrics.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, status, duration)

		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", duration))
	}
}
