package apiclient

import (
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/teemow/autogmail/internal/logging"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// Decorator mutates an outgoing request right before it is sent.
type Decorator func(*http.Request)

// BearerToken returns a Decorator that reads the token from store on every call
// and sets the Authorization header when a token is present. A missing token, or
// a store that fails to read, leaves the request unmodified.
func BearerToken(store tokenstore.TokenStore) Decorator {
	return bearerToken(store, slog.Default())
}

func bearerToken(store tokenstore.TokenStore, logger *slog.Logger) Decorator {
	return func(req *http.Request) {
		token, err := store.Get(req.Context())
		if err != nil {
			logger.Debug("token store read failed, sending request without credentials", logging.Err(err))
			return
		}
		if token == "" {
			return
		}
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
}

// StaticHeader returns a Decorator that sets a fixed header on every request.
func StaticHeader(key, value string) Decorator {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}
