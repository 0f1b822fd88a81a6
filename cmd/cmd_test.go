package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/autogmail/internal/config"
	"github.com/teemow/autogmail/internal/endpoint"
	"github.com/teemow/autogmail/internal/tools/knowledge_tools"
	"github.com/teemow/autogmail/internal/tools/mail_tools"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{mail_tools.ToolListInbox, "Mail Tools"},
		{mail_tools.ToolSaveDraft, "Mail Tools"},
		{knowledge_tools.ToolUploadDocument, "Knowledge Base Tools"},
		{"something_else", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getCategoryFromToolName(tt.name))
		})
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("autogmail_example",
		mcp.WithDescription("Example tool"),
		mcp.WithString("to", mcp.Required(), mcp.Description("Recipient address")),
		mcp.WithNumber("limit"),
	)

	md := generateToolMarkdown(tool, true)
	assert.Contains(t, md, "### autogmail_example (write)")
	assert.Contains(t, md, "Example tool")
	assert.Contains(t, md, "- `to` (required): Recipient address")
	assert.Contains(t, md, "- `limit` (optional): number parameter")

	md = generateToolMarkdown(tool, false)
	assert.Contains(t, md, "### autogmail_example\n")
}

func TestNewDocsServer(t *testing.T) {
	all, err := newDocsServer(false)
	require.NoError(t, err)
	readOnly, err := newDocsServer(true)
	require.NoError(t, err)

	allTools := all.ListTools()
	safeTools := readOnly.ListTools()
	assert.Len(t, allTools, 6)
	assert.Len(t, safeTools, 3)

	for _, name := range []string{mail_tools.ToolSaveDraft, mail_tools.ToolSyncSent, knowledge_tools.ToolUploadDocument} {
		assert.Contains(t, allTools, name)
		assert.NotContains(t, safeTools, name)
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	all, err := newDocsServer(false)
	require.NoError(t, err)

	var tools []mcp.Tool
	for _, st := range all.ListTools() {
		tools = append(tools, st.Tool)
	}

	md := generateToolsMarkdown(tools, map[string]bool{mail_tools.ToolSaveDraft: true})
	assert.True(t, strings.HasPrefix(md, "# MCP Tools Reference"))
	assert.Contains(t, md, "- [Knowledge Base Tools](#knowledge-base-tools)")
	assert.Contains(t, md, "- [Mail Tools](#mail-tools)")
	assert.Contains(t, md, "### "+mail_tools.ToolSaveDraft+" (write)")
	assert.Contains(t, md, "### "+mail_tools.ToolListInbox+"\n")

	// Categories are sorted
	assert.Less(t, strings.Index(md, "## Knowledge Base Tools"), strings.Index(md, "## Mail Tools"))
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "newline terminated", input: "http://localhost/cb?token=a\n", expected: "http://localhost/cb?token=a"},
		{name: "no trailing newline", input: "  abc  ", expected: "abc"},
		{name: "only first line", input: "one\ntwo\n", expected: "one"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLine(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	old := version
	SetVersion("1.2.3")
	t.Cleanup(func() { version = old })

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "autogmail version 1.2.3\n", out.String())
}

func TestApplyFlags(t *testing.T) {
	saved := flags
	t.Cleanup(func() { flags = saved })
	flags = globalFlags{}

	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.StringVar(&flags.apiURL, "api-url", "", "")
	f.StringVar(&flags.tokenStore, "token-store", "", "")
	f.StringVar(&flags.logLevel, "log-level", "", "")
	f.StringVar(&flags.logFormat, "log-format", "", "")
	f.BoolVar(&flags.debug, "debug", false, "")

	cfg := config.Default()
	cfg.TokenStore.Type = "file"
	cfg.Log.Format = "json"

	require.NoError(t, f.Set("api-url", "https://api.example.com"))
	require.NoError(t, f.Set("log-level", "warn"))
	applyFlags(cmd, cfg)

	assert.Equal(t, "https://api.example.com", cfg.API.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Unchanged flags keep the configured values
	assert.Equal(t, "file", cfg.TokenStore.Type)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, f.Set("debug", "true"))
	applyFlags(cmd, cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestStoreModeFor(t *testing.T) {
	assert.Equal(t, storeScopedPersistent, storeModeFor(transportStdio))
	assert.Equal(t, storeScopedEmpty, storeModeFor(transportStreamableHTTP))
}

func TestNewApp_StreamableHTTPIgnoresHostToken(t *testing.T) {
	var sawAuth []string
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(backendSrv.Close)

	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("host-secret"), 0600))

	cfg := config.Default()
	cfg.API.URL = backendSrv.URL
	cfg.TokenStore.Type = "file"
	cfg.TokenStore.FilePath = tokenFile

	tests := []struct {
		transport string
		expected  string
	}{
		{transport: transportStdio, expected: "Bearer host-secret"},
		{transport: transportStreamableHTTP, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			sawAuth = nil
			a, err := newApp(context.Background(), cfg, nil, storeModeFor(tt.transport), cfg.Endpoint(), nil)
			require.NoError(t, err)
			defer a.Close()

			_, err = a.backend.ListInbox(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, sawAuth, 1)
			assert.Equal(t, tt.expected, sawAuth[0])
		})
	}
}

func TestEndpointsPerCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Site.PublicURL = "https://dash.example.com/"

	cli, err := newApp(context.Background(), cfg, nil, storeScopedEmpty, cfg.Endpoint(), nil)
	require.NoError(t, err)
	defer cli.Close()
	assert.Equal(t, endpoint.DefaultBaseURL, cli.resolver.BaseURL())

	site, err := newApp(context.Background(), cfg, nil, storeScopedEmpty, cfg.SiteEndpoint(), nil)
	require.NoError(t, err)
	defer site.Close()
	assert.Equal(t, "https://dash.example.com/api/v1", site.resolver.BaseURL())
}

func TestServeHelpNamesDefaultBackend(t *testing.T) {
	long := newServeCmd().Long
	assert.Contains(t, long, endpoint.DefaultBaseURL)
	assert.NotContains(t, long, "localhost:8000")
}
