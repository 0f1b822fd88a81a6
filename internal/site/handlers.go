package site

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/authflow"
	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/dashboard"
	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/logging"
	"github.com/teemow/autogmail/internal/tokenstore"
)

func (s *Site) render(c *gin.Context, status int, page string, data pageData) {
	data.SignedIn = requestToken(c) != ""
	c.HTML(status, page, data)
}

func (s *Site) handleLanding(c *gin.Context) {
	s.render(c, http.StatusOK, pageLanding, pageData{})
}

func (s *Site) handleNotFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, pageNotFound, pageData{Title: "Not Found"})
}

func (s *Site) handleLoginPage(c *gin.Context) {
	s.render(c, http.StatusOK, pageLogin, pageData{Title: "Sign in"})
}

// handleLogin asks the backend for the Google OAuth URL and sends the browser there.
func (s *Site) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	target, err := s.sc.Backend().LoginURL(ctx)
	if err != nil {
		s.logger.Warn("failed to get login URL", logging.Err(err))
		s.render(c, http.StatusBadGateway, pageLogin, pageData{
			Title: "Sign in",
			Error: "Could not reach the sign-in service. Please try again.",
		})
		return
	}

	s.sc.Metrics().RecordAuthEvent(ctx, instrumentation.AuthEventLoginRedirect)
	c.Redirect(http.StatusFound, target)
}

// handleGoogleRedirect starts the OAuth flow through the backend's redirect endpoint.
func (s *Site) handleGoogleRedirect(c *gin.Context) {
	s.sc.Metrics().RecordAuthEvent(c.Request.Context(), instrumentation.AuthEventLoginRedirect)
	c.Redirect(http.StatusFound, authflow.LoginRedirectURL(s.sc.Backend().BaseURL()))
}

func (s *Site) handleCallback(c *gin.Context) {
	ctx := c.Request.Context()

	store := tokenstore.NewMemory()
	cb, err := authflow.HandleCallback(ctx, store, c.Request.URL.Query())
	if err != nil {
		s.logger.Warn("failed to handle auth callback", logging.Err(err))
	}
	if cb.SignedIn() {
		s.setTokenCookie(c, cb.Token)
		s.sc.Metrics().RecordAuthEvent(ctx, instrumentation.AuthEventCallback)
		s.logger.Info("user signed in", logging.UserHash(cb.Email), slog.String("token", logging.SanitizeToken(cb.Token)))
	} else {
		s.sc.Metrics().RecordAuthEvent(ctx, instrumentation.AuthEventMissingToken)
	}
	c.Redirect(http.StatusFound, cb.Destination)
}

func (s *Site) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()

	if token := requestToken(c); token != "" {
		s.sessions.Remove(ctx, token)
	}
	dest, err := authflow.Logout(ctx, s.sc.TokenStore())
	if err != nil {
		s.logger.Warn("failed to clear token", logging.Err(err))
	}
	s.clearTokenCookie(c)
	s.sc.Metrics().RecordAuthEvent(ctx, instrumentation.AuthEventLogout)
	c.Redirect(http.StatusFound, dest)
}

// setTokenCookie stores the token as an HttpOnly cookie. When the token is a
// JWT with an expiry the cookie expires with it.
func (s *Site) setTokenCookie(c *gin.Context, token string) {
	maxAge := 0
	if claims, err := tokenstore.Inspect(token); err == nil && !claims.ExpiresAt.IsZero() {
		maxAge = int(time.Until(claims.ExpiresAt).Seconds())
		if maxAge <= 0 {
			maxAge = -1
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", s.secureCookies, true)
}

func (s *Site) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", s.secureCookies, true)
}

func (s *Site) session(c *gin.Context) *dashboard.Session {
	return s.sessions.Get(c.Request.Context(), requestToken(c))
}

// handleBackendError turns a rejected token into a fresh sign-in. It reports
// whether the response was written.
func (s *Site) handleBackendError(c *gin.Context, err error) bool {
	if err == nil || !apiclient.IsUnauthorized(err) {
		return false
	}
	ctx := c.Request.Context()
	s.sessions.Remove(ctx, requestToken(c))
	s.clearTokenCookie(c)
	s.sc.Metrics().RecordAuthEvent(ctx, instrumentation.AuthEventUnauthorized)
	c.Redirect(http.StatusFound, authflow.DestinationLogin)
	return true
}

func (s *Site) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.session(c)

	if !sess.Snapshot().Loaded {
		if err := sess.Refresh(ctx); err != nil {
			if s.handleBackendError(c, err) {
				return
			}
			s.logger.Warn("failed to load inbox", logging.Err(err))
		}
	}

	if id := c.Query("email"); id != "" {
		if err := sess.Select(id); err != nil {
			s.logger.Debug("ignoring unknown email selection", logging.EmailID(id))
		}
	}

	s.render(c, http.StatusOK, pageDashboard, pageData{
		Title:  "Dashboard",
		Notice: sess.TakeNotice(),
		State:  sess.Snapshot(),
	})
}

// backToDashboard redirects to the dashboard, keeping the selected email.
func (s *Site) backToDashboard(c *gin.Context, sess *dashboard.Session) {
	target := authflow.DestinationDashboard
	if sel := sess.Snapshot().Selected; sel != nil {
		target += "?" + url.Values{"email": {sel.ID}}.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

// finish handles the outcome of a dashboard action. Stale results and errors
// already turned into notices only need the redirect.
func (s *Site) finish(c *gin.Context, sess *dashboard.Session, action string, err error) {
	if s.handleBackendError(c, err) {
		return
	}
	if err != nil && !errors.Is(err, dashboard.ErrStale) {
		s.logger.Debug("dashboard action failed", logging.Operation(action), logging.Err(err))
	}
	s.backToDashboard(c, sess)
}

func (s *Site) handleRefresh(c *gin.Context) {
	sess := s.session(c)
	s.finish(c, sess, "refresh", sess.Refresh(c.Request.Context()))
}

func (s *Site) handleGenerateDraft(c *gin.Context) {
	sess := s.session(c)
	_, err := sess.GenerateDraft(c.Request.Context(), c.Param("id"))
	if errors.Is(err, dashboard.ErrUnknownEmail) {
		s.handleNotFound(c)
		return
	}
	s.finish(c, sess, instrumentation.OperationGenerateDraft, err)
}

func (s *Site) handleDraftAction(c *gin.Context) {
	sess := s.session(c)

	switch c.PostForm("action") {
	case "save":
		if err := sess.EditDraft(c.PostForm("draft")); err != nil {
			s.finish(c, sess, instrumentation.OperationSaveDraft, err)
			return
		}
		_, err := sess.SaveDraft(c.Request.Context())
		s.finish(c, sess, instrumentation.OperationSaveDraft, err)
	case "discard":
		sess.DiscardDraft()
		s.backToDashboard(c, sess)
	default:
		c.String(http.StatusBadRequest, "unknown draft action")
	}
}

func (s *Site) handleUpload(c *gin.Context) {
	sess := s.session(c)

	header, err := c.FormFile(backend.UploadField)
	if err != nil {
		s.backToDashboard(c, sess)
		return
	}
	f, err := header.Open()
	if err != nil {
		s.finish(c, sess, instrumentation.OperationUploadDocument, err)
		return
	}
	defer f.Close()

	_, err = sess.Upload(c.Request.Context(), header.Filename, f)
	s.finish(c, sess, instrumentation.OperationUploadDocument, err)
}

func (s *Site) handleSync(c *gin.Context) {
	sess := s.session(c)
	_, err := sess.Sync(c.Request.Context(), backend.DefaultSyncLimit)
	s.finish(c, sess, instrumentation.OperationSyncSent, err)
}
