package common

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/autogmail/internal/apiclient"
)

// SignInHint is appended to errors caused by a missing or rejected token.
const SignInHint = "Run `autogmail login` to sign in again."

// BackendErrorResult converts a backend failure into a tool error result. The
// backend's detail message is preferred over the transport error text.
func BackendErrorResult(action string, err error) *mcp.CallToolResult {
	msg := err.Error()
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			msg = detail
		}
	}
	if apiclient.IsUnauthorized(err) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %s. %s", action, msg, SignInHint))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %s", action, msg))
}

// IntArg returns the numeric argument key, or def when it is absent or not a
// number. JSON numbers arrive as float64.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
