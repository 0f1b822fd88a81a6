package site

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teemow/autogmail/internal/server"
)

// Config configures the site.
type Config struct {
	// Server carries the backend client and instrumentation (required)
	Server *server.ServerContext

	// Sessions holds the dashboard sessions (required)
	Sessions *server.SessionManager

	// Health serves the health endpoints; nil disables them
	Health *server.HealthChecker

	// SecureCookies marks the token cookie Secure
	SecureCookies bool

	Logger *slog.Logger
}

// Site is the web dashboard.
type Site struct {
	sc            *server.ServerContext
	sessions      *server.SessionManager
	health        *server.HealthChecker
	secureCookies bool
	logger        *slog.Logger
	engine        *gin.Engine
}

// New builds the site and its routes.
func New(config Config) (*Site, error) {
	if config.Server == nil {
		return nil, errors.New("server context is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = config.Server.Logger()
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Site{
		sc:            config.Server,
		sessions:      config.Sessions,
		health:        config.Health,
		secureCookies: config.SecureCookies,
		logger:        logger,
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	engine.Use(gin.Recovery(), observe(logger, config.Server.Metrics()), bindToken())
	s.engine = engine
	s.routes()

	return s, nil
}

// Handler returns the HTTP handler serving the site.
func (s *Site) Handler() http.Handler {
	return s.engine
}

func (s *Site) routes() {
	r := s.engine

	r.GET("/", s.handleLanding)
	r.GET("/login", s.handleLoginPage)
	r.POST("/login", s.handleLogin)
	r.GET("/auth/google", s.handleGoogleRedirect)
	r.GET("/auth/callback", s.handleCallback)
	r.POST("/logout", s.handleLogout)

	dash := r.Group("/dashboard", requireToken(s.sc.Metrics()))
	dash.GET("", s.handleDashboard)
	dash.POST("/refresh", s.handleRefresh)
	dash.POST("/emails/:id/draft", s.handleGenerateDraft)
	dash.POST("/draft", s.handleDraftAction)
	dash.POST("/documents", s.handleUpload)
	dash.POST("/sync", s.handleSync)

	if s.health != nil {
		r.GET("/healthz", gin.WrapH(s.health.LivenessHandler()))
		r.GET("/readyz", gin.WrapH(s.health.ReadinessHandler()))
		r.GET("/healthz/detailed", gin.WrapH(s.health.DetailedHealthHandler()))
	}

	r.NoRoute(s.handleNotFound)
}
