package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/server"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// Resource URIs.
const (
	SessionURI = "autogmail://session"
	InboxURI   = "autogmail://inbox"
)

// SessionInfo describes the caller's sign-in state.
type SessionInfo struct {
	SignedIn      bool       `json:"signedIn"`
	User          string     `json:"user,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Expired       bool       `json:"expired"`
	BackendURL    string     `json:"backendUrl"`
	WritesEnabled bool       `json:"writesEnabled"`
}

// RegisterUserResources registers the session and inbox resources.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	sessionResource := mcp.NewResource(
		SessionURI,
		"Current Session",
		mcp.WithResourceDescription("Sign-in state of the token used for backend calls"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(sessionResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSession(ctx, request, sc)
	})

	inboxResource := mcp.NewResource(
		InboxURI,
		"Inbox",
		mcp.WithResourceDescription(fmt.Sprintf("The %d newest messages in the signed-in user's inbox", backend.DefaultInboxSize)),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(inboxResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleInbox(ctx, request, sc)
	})

	return nil
}

// Session reports the sign-in state for ctx. The token is decoded, not verified.
func Session(ctx context.Context, sc *server.ServerContext) SessionInfo {
	info := SessionInfo{
		BackendURL:    sc.Backend().BaseURL(),
		WritesEnabled: sc.AllowWrites(),
	}

	token, err := sc.TokenStore().Get(ctx)
	if err != nil || token == "" {
		return info
	}
	info.SignedIn = true

	claims, err := tokenstore.Inspect(token)
	if err != nil {
		return info
	}
	info.User = claims.Subject
	if !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt
		info.ExpiresAt = &exp
		info.Expired = claims.Expired(time.Now())
	}
	return info
}

func handleSession(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, Session(ctx, sc))
}

func handleInbox(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	emails, err := sc.Backend().ListInbox(ctx, backend.DefaultInboxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	return jsonContents(request.Params.URI, emails)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
