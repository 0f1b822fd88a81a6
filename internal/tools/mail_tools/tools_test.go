package mail_tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/server"
	"github.com/teemow/autogmail/internal/tokenstore"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fakeBackend struct {
	lastQuery string
	lastDraft backend.DraftRequest
	lastText  string
}

func newTestServerContext(t *testing.T, fb *fakeBackend) *server.ServerContext {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/gmail/inbox", func(w http.ResponseWriter, r *http.Request) {
		fb.lastQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, []backend.Email{
			{ID: "m1", Subject: "Refund", Sender: "Jane Doe <jane@example.com>", Snippet: "Can I get a refund?"},
			{ID: "m2", Subject: "Hours", Sender: "bob@example.com", Snippet: "When are you open?"},
		})
	})
	mux.HandleFunc("GET /api/v1/gmail/email/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Email not found"})
			return
		}
		writeJSON(w, http.StatusOK, backend.EmailBody{
			ID:      r.PathValue("id"),
			Subject: "Refund",
			Sender:  "Jane Doe <jane@example.com>",
			Body:    "Can I get a refund for order 42?",
		})
	})
	mux.HandleFunc("POST /api/v1/generate/draft", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EmailText string `json:"email_text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		fb.lastText = req.EmailText
		writeJSON(w, http.StatusOK, backend.DraftReply{Draft: "Hi Jane, yes.", ContextUsed: "Refund policy"})
	})
	mux.HandleFunc("POST /api/v1/gmail/draft", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &fb.lastDraft)
		writeJSON(w, http.StatusOK, backend.SavedDraft{Status: "Draft Created", DraftID: "d-1"})
	})
	mux.HandleFunc("POST /api/v1/gmail/sync-sent", func(w http.ResponseWriter, r *http.Request) {
		fb.lastQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, backend.SyncResult{Status: "success", SyncedCount: 7})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	store := tokenstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), "secret"))
	api, err := apiclient.New(apiclient.Config{BaseURL: ts.URL + "/api/v1", Store: store})
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(), server.Options{
		Backend: backend.NewClient(api),
		Store:   store,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callTool(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisterMailTools(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		want     []string
		absent   []string
	}{
		{
			name:     "read only",
			readOnly: true,
			want:     []string{ToolListInbox, ToolGetEmail, ToolGenerateDraft},
			absent:   []string{ToolSaveDraft, ToolSyncSent},
		},
		{
			name: "writes enabled",
			want: []string{ToolListInbox, ToolGetEmail, ToolGenerateDraft, ToolSaveDraft, ToolSyncSent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newTestServerContext(t, &fakeBackend{})
			s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
			require.NoError(t, RegisterMailTools(s, sc, tt.readOnly))

			tools := s.ListTools()
			for _, name := range tt.want {
				assert.Contains(t, tools, name)
			}
			for _, name := range tt.absent {
				assert.NotContains(t, tools, name)
			}
		})
	}
}

func TestRegisterMailTools_RequiresServer(t *testing.T) {
	assert.Error(t, RegisterMailTools(nil, nil, true))
}

func TestHandleListInbox(t *testing.T) {
	fb := &fakeBackend{}
	sc := newTestServerContext(t, fb)

	result, err := handleListInbox(context.Background(), callTool(map[string]any{"maxResults": float64(5)}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "max_results=5", fb.lastQuery)

	text := resultText(t, result)
	assert.Contains(t, text, "Found 2 emails")
	assert.Contains(t, text, "ID: m1")
	assert.Contains(t, text, "Subject: Hours")

	result, err = handleListInbox(context.Background(), callTool(map[string]any{"maxResults": float64(0)}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetEmail(t *testing.T) {
	sc := newTestServerContext(t, &fakeBackend{})

	t.Run("single", func(t *testing.T) {
		result, err := handleGetEmail(context.Background(), callTool(map[string]any{"emailIds": "m1"}), sc)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Contains(t, resultText(t, result), "Can I get a refund for order 42?")
	})

	t.Run("not found", func(t *testing.T) {
		result, err := handleGetEmail(context.Background(), callTool(map[string]any{"emailIds": "missing"}), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "Email not found")
	})

	t.Run("batch with partial failure", func(t *testing.T) {
		result, err := handleGetEmail(context.Background(),
			callTool(map[string]any{"emailIds": []any{"m1", "missing"}}), sc)
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var summary struct {
			Total      int `json:"total"`
			Successful int `json:"successful"`
			Failed     int `json:"failed"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summary))
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.Successful)
		assert.Equal(t, 1, summary.Failed)
	})

	t.Run("missing argument", func(t *testing.T) {
		result, err := handleGetEmail(context.Background(), callTool(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleGenerateDraft(t *testing.T) {
	fb := &fakeBackend{}
	sc := newTestServerContext(t, fb)

	result, err := handleGenerateDraft(context.Background(), callTool(map[string]any{"emailId": "m1"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var draft draftResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &draft))
	assert.Equal(t, "Hi Jane, yes.", draft.Draft)
	assert.Equal(t, "Refund policy", draft.ContextUsed)
	assert.Equal(t, "jane@example.com", draft.To)
	assert.Equal(t, "Re: Refund", draft.Subject)
	assert.Equal(t, "Subject: Refund\nFrom: Jane Doe <jane@example.com>\n\nCan I get a refund for order 42?", fb.lastText)

	result, err = handleGenerateDraft(context.Background(), callTool(map[string]any{"emailText": "hello"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "hello", fb.lastText)

	result, err = handleGenerateDraft(context.Background(), callTool(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleSaveDraft(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]any
		wantError   bool
		wantTo      string
		wantSubject string
	}{
		{
			name:        "sender header",
			args:        map[string]any{"to": "Jane Doe <jane@example.com>", "subject": "Refund", "body": "Yes", "reply": true},
			wantTo:      "jane@example.com",
			wantSubject: "Re: Refund",
		},
		{
			name:        "already prefixed",
			args:        map[string]any{"to": "jane@example.com", "subject": "Re: Refund", "body": "Yes", "reply": true},
			wantTo:      "jane@example.com",
			wantSubject: "Re: Refund",
		},
		{
			name:      "missing recipient",
			args:      map[string]any{"body": "Yes"},
			wantError: true,
		},
		{
			name:      "missing body",
			args:      map[string]any{"to": "jane@example.com"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{}
			sc := newTestServerContext(t, fb)

			result, err := handleSaveDraft(context.Background(), callTool(tt.args), sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantError, result.IsError)
			if tt.wantError {
				return
			}
			assert.Contains(t, resultText(t, result), "d-1")
			assert.Equal(t, tt.wantTo, fb.lastDraft.Recipient)
			assert.Equal(t, tt.wantSubject, fb.lastDraft.Subject)
		})
	}
}

func TestHandleSyncSent(t *testing.T) {
	fb := &fakeBackend{}
	sc := newTestServerContext(t, fb)

	result, err := handleSyncSent(context.Background(), callTool(nil), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "limit=20", fb.lastQuery)
	assert.Contains(t, resultText(t, result), "7")
}
