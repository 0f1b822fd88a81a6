package knowledge_tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/server"
)

type upload struct {
	filename string
	content  string
}

func newTestServerContext(t *testing.T, status int, got *upload) *server.ServerContext {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Unsupported file type"})
			return
		}
		f, hdr, err := r.FormFile(backend.UploadField)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		got.filename = hdr.Filename
		got.content = string(data)
		_ = json.NewEncoder(w).Encode(backend.UploadResult{
			Filename:  hdr.Filename,
			CharCount: len(data),
			Status:    "Indexed successfully in Vector DB",
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	api, err := apiclient.New(apiclient.Config{BaseURL: ts.URL + "/api/v1"})
	require.NoError(t, err)
	sc, err := server.NewServerContext(context.Background(), server.Options{Backend: backend.NewClient(api)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func callUpload(path string) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"path": path}
	return req
}

func TestRegisterKnowledgeTools(t *testing.T) {
	sc := newTestServerContext(t, http.StatusOK, &upload{})

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterKnowledgeTools(s, sc, true))
	assert.NotContains(t, s.ListTools(), ToolUploadDocument)

	require.NoError(t, RegisterKnowledgeTools(s, sc, false))
	assert.Contains(t, s.ListTools(), ToolUploadDocument)
}

func TestCheckDocument(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "text file", path: writeFile(t, "policy.txt", "Refunds within 30 days."), want: "policy.txt"},
		{name: "upper case extension", path: writeFile(t, "POLICY.PDF", "%PDF"), want: "POLICY.PDF"},
		{name: "unsupported type", path: writeFile(t, "notes.md", "# notes"), wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "absent.docx"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckDocument(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleUploadDocument(t *testing.T) {
	got := &upload{}
	sc := newTestServerContext(t, http.StatusOK, got)
	path := writeFile(t, "policy.txt", "Refunds within 30 days.")

	result, err := handleUploadDocument(context.Background(), callUpload(path), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "policy.txt", got.filename)
	assert.Equal(t, "Refunds within 30 days.", got.content)
	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "Indexed successfully in Vector DB")
	assert.Contains(t, text, "23 characters")
}

func TestHandleUploadDocument_Errors(t *testing.T) {
	sc := newTestServerContext(t, http.StatusBadRequest, &upload{})

	result, err := handleUploadDocument(context.Background(), callUpload(""), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handleUploadDocument(context.Background(), callUpload(writeFile(t, "policy.txt", "x")), sc)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].(mcp.TextContent).Text, "Unsupported file type")
}
