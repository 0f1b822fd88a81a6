package mail_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/dashboard"
	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/server"
	"github.com/teemow/autogmail/internal/tools/batch"
	"github.com/teemow/autogmail/internal/tools/common"
)

// Tool names.
const (
	ToolListInbox     = "autogmail_list_inbox"
	ToolGetEmail      = "autogmail_get_email"
	ToolGenerateDraft = "autogmail_generate_draft"
	ToolSaveDraft     = "autogmail_save_draft"
	ToolSyncSent      = "autogmail_sync_sent"
)

// RegisterMailTools registers the mailbox tools with the MCP server. Write tools
// are skipped when readOnly is true.
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	listInboxTool := mcp.NewTool(ToolListInbox,
		mcp.WithDescription("List the most recent messages in the signed-in user's Gmail inbox"),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of messages to return (default: %d)", backend.DefaultInboxSize)),
		),
	)
	s.AddTool(listInboxTool, common.InstrumentedToolHandler(common.ToolSpec{
		Name:      ToolListInbox,
		Operation: instrumentation.OperationListInbox,
		ReadOnly:  true,
	}, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListInbox(ctx, request, sc)
	}))

	getEmailTool := mcp.NewTool(ToolGetEmail,
		mcp.WithDescription("Fetch the full body of one or more messages"),
		mcp.WithString("emailIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
	)
	s.AddTool(getEmailTool, common.InstrumentedToolHandler(common.ToolSpec{
		Name:      ToolGetEmail,
		Operation: instrumentation.OperationGetEmail,
		ReadOnly:  true,
	}, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetEmail(ctx, request, sc)
	}))

	generateDraftTool := mcp.NewTool(ToolGenerateDraft,
		mcp.WithDescription("Generate a reply to a message using the company knowledge base. "+
			"The draft is returned, not saved."),
		mcp.WithString("emailId",
			mcp.Description("ID of the message to reply to"),
		),
		mcp.WithString("emailText",
			mcp.Description("Raw email text to reply to, used instead of emailId"),
		),
	)
	s.AddTool(generateDraftTool, common.InstrumentedToolHandler(common.ToolSpec{
		Name:       ToolGenerateDraft,
		Operation:  instrumentation.OperationGenerateDraft,
		ReadOnly:   true,
		EmailIDArg: "emailId",
	}, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGenerateDraft(ctx, request, sc)
	}))

	if readOnly {
		return nil
	}

	saveDraftTool := mcp.NewTool(ToolSaveDraft,
		mcp.WithDescription("Save a reply as a draft in the user's Gmail account"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient address. A sender header such as 'Jane <jane@example.com>' is accepted."),
		),
		mcp.WithString("subject",
			mcp.Description("Subject of the draft"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Body of the draft"),
		),
		mcp.WithBoolean("reply",
			mcp.Description("Prefix the subject with 'Re: ' (default: false)"),
		),
	)
	s.AddTool(saveDraftTool, common.InstrumentedToolHandler(common.ToolSpec{
		Name:      ToolSaveDraft,
		Operation: instrumentation.OperationSaveDraft,
	}, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSaveDraft(ctx, request, sc)
	}))

	syncSentTool := mcp.NewTool(ToolSyncSent,
		mcp.WithDescription("Index recent sent mail so generated drafts match the user's writing style"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Number of sent messages to index (default: %d)", backend.DefaultSyncLimit)),
		),
	)
	s.AddTool(syncSentTool, common.InstrumentedToolHandler(common.ToolSpec{
		Name:      ToolSyncSent,
		Operation: instrumentation.OperationSyncSent,
	}, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSyncSent(ctx, request, sc)
	}))

	return nil
}

func handleListInbox(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	maxResults := common.IntArg(request.GetArguments(), "maxResults", backend.DefaultInboxSize)
	if maxResults < 1 {
		return mcp.NewToolResultError("maxResults must be positive"), nil
	}

	emails, err := sc.Backend().ListInbox(ctx, maxResults)
	if err != nil {
		return common.BackendErrorResult("list inbox", err), nil
	}
	if len(emails) == 0 {
		return mcp.NewToolResultText("Inbox is empty."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d emails:\n", len(emails))
	for i, e := range emails {
		fmt.Fprintf(&b, "%d. ID: %s\n   From: %s\n   Subject: %s\n   Snippet: %s\n",
			i+1, e.ID, e.Sender, e.Subject, e.Snippet)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleGetEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseIDs(request.GetArguments()["emailIds"], "emailIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(ids) == 1 {
		email, err := sc.Backend().GetEmail(ctx, ids[0])
		if err != nil {
			return common.BackendErrorResult("get email", err), nil
		}
		return mcp.NewToolResultText(formatEmail(email)), nil
	}

	summary := batch.Process(ctx, ids, func(ctx context.Context, id string) (any, error) {
		return sc.Backend().GetEmail(ctx, id)
	})
	return mcp.NewToolResultText(summary.JSON()), nil
}

func formatEmail(e *backend.EmailBody) string {
	return fmt.Sprintf("ID: %s\nFrom: %s\nSubject: %s\n\n%s", e.ID, e.Sender, e.Subject, e.Text())
}

type draftResult struct {
	EmailID     string `json:"emailId,omitempty"`
	To          string `json:"to,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Draft       string `json:"draft"`
	ContextUsed string `json:"contextUsed,omitempty"`
}

func handleGenerateDraft(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	emailID := strings.TrimSpace(request.GetString("emailId", ""))
	emailText := request.GetString("emailText", "")
	if emailID == "" && strings.TrimSpace(emailText) == "" {
		return mcp.NewToolResultError("emailId or emailText is required"), nil
	}

	result := draftResult{EmailID: emailID}
	if emailText == "" {
		email, err := sc.Backend().GetEmail(ctx, emailID)
		if err != nil {
			return common.BackendErrorResult("get email", err), nil
		}
		emailText = dashboard.ComposeEmailText(email.Subject, email.Sender, email.Text())
		result.To = dashboard.ExtractRecipient(email.Sender)
		result.Subject = dashboard.ReplySubject(email.Subject)
	}

	reply, err := sc.Backend().GenerateDraft(ctx, emailText)
	if err != nil {
		return common.BackendErrorResult("generate draft", err), nil
	}
	result.Draft = reply.Draft
	result.ContextUsed = reply.ContextUsed

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode draft: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleSaveDraft(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	to := dashboard.ExtractRecipient(strings.TrimSpace(request.GetString("to", "")))
	if to == "" {
		return mcp.NewToolResultError("to is required"), nil
	}
	body := request.GetString("body", "")
	if strings.TrimSpace(body) == "" {
		return mcp.NewToolResultError("body is required"), nil
	}
	subject := request.GetString("subject", "")
	if request.GetBool("reply", false) && !strings.HasPrefix(subject, dashboard.ReplyPrefix) {
		subject = dashboard.ReplySubject(subject)
	}

	saved, err := sc.Backend().SaveDraft(ctx, backend.DraftRequest{
		Recipient: to,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		return common.BackendErrorResult("save draft", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (draft ID: %s)", dashboard.MsgDraftSaved, saved.DraftID)), nil
}

func handleSyncSent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	limit := common.IntArg(request.GetArguments(), "limit", backend.DefaultSyncLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	res, err := sc.Backend().SyncSent(ctx, limit)
	if err != nil {
		return common.BackendErrorResult("sync sent mail", err), nil
	}
	return mcp.NewToolResultText(dashboard.SyncedMessage(res.SyncedCount)), nil
}
