// Package authflow implements the client side of the OAuth sign-in flow.
//
// The backend owns authentication. The client only sends the user to the backend's
// login endpoint, receives the issued token on the callback URL and stores it.
package authflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/teemow/autogmail/internal/tokenstore"
)

// Destinations after a flow step.
const (
	DestinationDashboard = "/dashboard"
	DestinationLogin     = "/login"
	DestinationHome      = "/"
)

// Callback query parameters set by the backend.
const (
	ParamToken = "token"
	ParamEmail = "email"
)

// LoginRedirectURL returns the backend URL that starts the OAuth flow and
// redirects the browser to Google.
func LoginRedirectURL(baseURL string) string {
	return baseURL + "/auth/login?redirect=true"
}

// Callback is the outcome of handling the OAuth redirect.
type Callback struct {
	// Destination is where the user goes next.
	Destination string

	// Token is the stored token, empty when none was received.
	Token string

	// Email is the signed-in address reported by the backend, if any.
	Email string
}

// SignedIn reports whether a token was received.
func (c Callback) SignedIn() bool {
	return c.Token != ""
}

// HandleCallback stores the token carried by the callback query. Without a token
// the user is sent back to the login page and the store is left untouched.
func HandleCallback(ctx context.Context, store tokenstore.TokenStore, query url.Values) (Callback, error) {
	token := strings.TrimSpace(query.Get(ParamToken))
	if token == "" {
		return Callback{Destination: DestinationLogin}, nil
	}

	if err := store.Set(ctx, token); err != nil {
		return Callback{Destination: DestinationLogin}, fmt.Errorf("failed to store token: %w", err)
	}

	return Callback{
		Destination: DestinationDashboard,
		Token:       token,
		Email:       query.Get(ParamEmail),
	}, nil
}

// HandleCallbackURL parses a full callback URL (as pasted by a CLI user) and
// handles its query.
func HandleCallbackURL(ctx context.Context, store tokenstore.TokenStore, callbackURL string) (Callback, error) {
	u, err := url.Parse(strings.TrimSpace(callbackURL))
	if err != nil {
		return Callback{Destination: DestinationLogin}, fmt.Errorf("invalid callback URL: %w", err)
	}
	return HandleCallback(ctx, store, u.Query())
}

// Logout removes the stored token and returns the destination.
func Logout(ctx context.Context, store tokenstore.TokenStore) (string, error) {
	if err := store.Clear(ctx); err != nil {
		return DestinationHome, fmt.Errorf("failed to clear token: %w", err)
	}
	return DestinationHome, nil
}
