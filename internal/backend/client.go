package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/instrumentation"
)

const (
	// DefaultInboxSize is the backend's page size when max_results is omitted.
	DefaultInboxSize = 10
	// DefaultSentSize is the backend's sent mail page size.
	DefaultSentSize = 50
	// DefaultSyncLimit is the number of sent emails indexed per sync.
	DefaultSyncLimit = 20
	// UploadField is the multipart field carrying an uploaded document.
	UploadField = "file"
)

// Client wraps the request client with the backend's routes
type Client struct {
	api *apiclient.Client
}

// NewClient creates a backend client on top of api
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// BaseURL returns the resolved backend base URL
func (c *Client) BaseURL() string {
	return c.api.BaseURL()
}

// LoginURL asks the backend for the Google OAuth URL to send the user to
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationLoginURL)

	var resp loginResponse
	if err := c.api.GetJSON(ctx, "/auth/login", &resp); err != nil {
		return "", fmt.Errorf("failed to get login URL: %w", err)
	}
	if resp.URL == "" {
		return "", errors.New("backend returned an empty login URL")
	}
	return resp.URL, nil
}

// ListInbox lists the newest inbox emails. maxResults <= 0 leaves the size to the backend.
func (c *Client) ListInbox(ctx context.Context, maxResults int) ([]Email, error) {
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationListInbox)

	var emails []Email
	if err := c.api.GetJSON(ctx, "/gmail/inbox", &emails, pageQuery(maxResults)...); err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	return emails, nil
}

// ListSent lists the newest sent message references. maxResults <= 0 leaves the size to the backend.
func (c *Client) ListSent(ctx context.Context, maxResults int) ([]MessageRef, error) {
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationListSent)

	var refs []MessageRef
	if err := c.api.GetJSON(ctx, "/gmail/sent", &refs, pageQuery(maxResults)...); err != nil {
		return nil, fmt.Errorf("failed to list sent mail: %w", err)
	}
	return refs, nil
}

func pageQuery(maxResults int) []apiclient.RequestOption {
	if maxResults <= 0 {
		return nil
	}
	return []apiclient.RequestOption{
		apiclient.WithQuery(url.Values{"max_results": {strconv.Itoa(maxResults)}}),
	}
}

// GetEmail fetches one email with its full body
func (c *Client) GetEmail(ctx context.Context, id string) (*EmailBody, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("email ID is required")
	}
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationGetEmail)

	var email EmailBody
	if err := c.api.GetJSON(ctx, "/gmail/email/"+url.PathEscape(id), &email); err != nil {
		return nil, fmt.Errorf("failed to get email %s: %w", id, err)
	}
	return &email, nil
}

// GenerateDraft asks the backend to write a reply to emailText using the
// user's knowledge base.
func (c *Client) GenerateDraft(ctx context.Context, emailText string) (*DraftReply, error) {
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationGenerateDraft)

	var reply DraftReply
	if err := c.api.PostJSON(ctx, "/generate/draft", generateRequest{EmailText: emailText}, &reply); err != nil {
		return nil, fmt.Errorf("failed to generate draft: %w", err)
	}
	return &reply, nil
}

// SaveDraft creates a draft in the user's Gmail account
func (c *Client) SaveDraft(ctx context.Context, req DraftRequest) (*SavedDraft, error) {
	if req.Recipient == "" {
		return nil, errors.New("recipient is required")
	}
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationSaveDraft)

	var saved SavedDraft
	if err := c.api.PostJSON(ctx, "/gmail/draft", req, &saved); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return &saved, nil
}

// UploadDocument uploads a policy document (PDF, DOCX or TXT) to be indexed
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	if filename == "" {
		return nil, errors.New("filename is required")
	}
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationUploadDocument)

	var result UploadResult
	if err := c.api.PostMultipart(ctx, "/documents/upload", UploadField, filename, r, &result); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	return &result, nil
}

// SyncSent indexes the newest sent emails into the knowledge base.
// limit <= 0 uses DefaultSyncLimit.
func (c *Client) SyncSent(ctx context.Context, limit int) (*SyncResult, error) {
	if limit <= 0 {
		limit = DefaultSyncLimit
	}
	ctx = apiclient.WithOperation(ctx, instrumentation.OperationSyncSent)

	var result SyncResult
	query := apiclient.WithQuery(url.Values{"limit": {strconv.Itoa(limit)}})
	if err := c.api.PostJSON(ctx, "/gmail/sync-sent", nil, &result, query); err != nil {
		return nil, fmt.Errorf("failed to sync sent mail: %w", err)
	}
	return &result, nil
}
