package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// maxErrorBody bounds the response body kept on an Error.
const maxErrorBody = 4096

// Error is returned for every failed request: transport failure, timeout or a
// non-2xx response.
type Error struct {
	Method string
	URL    string

	// StatusCode is 0 when no response was received.
	StatusCode int

	// Body is the (possibly truncated) response body, if any.
	Body []byte

	// Err is the transport error, nil for non-2xx responses.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.URL, e.Err)
	}
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if detail := e.Detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because a deadline was exceeded.
func (e *Error) Timeout() bool {
	var netErr net.Error
	return e.Err != nil && errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Detail returns the human-readable message in the response body. The backend
// reports errors as {"detail": "..."}; other bodies are returned trimmed.
func (e *Error) Detail() string {
	if len(e.Body) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(e.Body))
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
