package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/logging"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// DefaultTimeout bounds a request when no HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// defaultOperation labels requests whose context carries no operation name.
const defaultOperation = "request"

// Config configures a Client.
type Config struct {
	// BaseURL is the resolved backend base URL (required).
	BaseURL string

	// Store is read by the bearer token decorator. Nil disables authentication.
	Store tokenstore.TokenStore

	// HTTPClient sends requests. Defaults to a client with Timeout.
	HTTPClient *http.Client

	// Timeout is used when HTTPClient is nil (default: 30s).
	Timeout time.Duration

	// Decorators run after the bearer token decorator.
	Decorators []Decorator

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Client sends requests to the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	decorators []Decorator
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var decorators []Decorator
	if config.Store != nil {
		decorators = append(decorators, bearerToken(config.Store, logger))
	}
	decorators = append(decorators, config.Decorators...)

	return &Client{
		baseURL:    config.BaseURL,
		httpClient: httpClient,
		decorators: decorators,
		logger:     logger,
		metrics:    config.Metrics,
	}, nil
}

// BaseURL returns the base URL every path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one outgoing call.
type Request struct {
	Method string
	// Path is relative to the base URL.
	Path   string
	Query  url.Values
	Body   io.Reader
	Header http.Header
}

// Response is a successful (2xx) response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into out.
func (r *Response) DecodeJSON(out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// RequestOption customizes a request made through the verb helpers.
type RequestOption func(*Request)

// WithHeader sets a per-request header. Decorators run afterwards and may
// overwrite it.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters.
func WithQuery(query url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}
		for k, vs := range query {
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}

type operationKey struct{}

// WithOperation names the backend operation for spans, metrics and logs.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

func operationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return defaultOperation
}

func (c *Client) resolve(path string, query url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// Do sends req. Any failure is returned as *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.resolve(req.Path, req.Query)
	operation := operationFrom(ctx)

	ctx, span := instrumentation.StartBackendSpan(ctx, operation, method,
		attribute.String(instrumentation.SpanAttrURL, c.baseURL+req.Path))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, req.Body)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, &Error{Method: method, URL: target, Err: err}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for _, decorate := range c.decorators {
		decorate(httpReq)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(ctx, operation, method, 0, start)
		apiErr := &Error{Method: method, URL: target, Err: err}
		instrumentation.SetSpanError(span, apiErr)
		c.logger.Debug("backend request failed",
			logging.Operation(operation),
			slog.String("method", method),
			logging.Err(err))
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	c.record(ctx, operation, method, resp.StatusCode, start)
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		apiErr := &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Body: body}
		instrumentation.SetSpanError(span, apiErr)
		c.logger.Debug("backend returned error status",
			logging.Operation(operation),
			slog.String("method", method),
			slog.Int("status_code", resp.StatusCode))
		return nil, apiErr
	}
	if readErr != nil {
		apiErr := &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Err: readErr}
		instrumentation.SetSpanError(span, apiErr)
		return nil, apiErr
	}

	instrumentation.SetSpanSuccess(span)
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) record(ctx context.Context, operation, method string, status int, start time.Time) {
	c.metrics.RecordBackendRequest(ctx, operation, method, status, time.Since(start))
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, opts []RequestOption) (*Response, error) {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return c.Do(ctx, req)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodGet, path, nil, opts)
}

// Post sends a POST request with an optional body.
func (c *Client) Post(ctx context.Context, path string, body io.Reader, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, body, opts)
}

// Put sends a PUT request with an optional body.
func (c *Client) Put(ctx context.Context, path string, body io.Reader, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodPut, path, body, opts)
}

// Patch sends a PATCH request with an optional body.
func (c *Client) Patch(ctx context.Context, path string, body io.Reader, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodPatch, path, body, opts)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodDelete, path, nil, opts)
}

// GetJSON sends a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	opts = append([]RequestOption{WithHeader("Accept", "application/json")}, opts...)
	resp, err := c.Get(ctx, path, opts...)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(out)
}

// PostJSON sends in as a JSON body (no body when in is nil) and decodes the JSON
// response into out (ignored when out is nil).
func (c *Client) PostJSON(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	var body io.Reader
	headers := []RequestOption{WithHeader("Accept", "application/json")}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		headers = append(headers, WithHeader("Content-Type", "application/json"))
	}

	resp, err := c.Post(ctx, path, body, append(headers, opts...)...)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(out)
}

// PostMultipart uploads r as a multipart/form-data file part named field and
// decodes the JSON response into out.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, r io.Reader, out any, opts ...RequestOption) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	headers := []RequestOption{
		WithHeader("Accept", "application/json"),
		WithHeader("Content-Type", mw.FormDataContentType()),
	}
	resp, err := c.Post(ctx, path, &buf, append(headers, opts...)...)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(out)
}
