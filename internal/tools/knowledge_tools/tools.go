package knowledge_tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/server"
	"github.com/teemow/autogmail/internal/tools/common"
)

// ToolUploadDocument is the upload tool's name.
const ToolUploadDocument = "autogmail_upload_document"

// MaxDocumentSize is the largest file the tool will send.
const MaxDocumentSize = 20 * 1024 * 1024

// SupportedExtensions lists the file types the backend can index.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// RegisterKnowledgeTools registers the knowledge base tools. Nothing is
// registered when readOnly is true.
func RegisterKnowledgeTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}
	if readOnly {
		return nil
	}

	uploadTool := mcp.NewTool(ToolUploadDocument,
		mcp.WithDescription("Upload a company policy document (PDF, DOCX or TXT) to the knowledge base used for drafting replies"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the local file to upload"),
		),
	)
	s.AddTool(uploadTool, common.InstrumentedToolHandler(common.ToolSpec{
		Name:      ToolUploadDocument,
		Operation: instrumentation.OperationUploadDocument,
	}, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleUploadDocument(ctx, request, sc)
	}))

	return nil
}

// CheckDocument validates a file before upload and returns its base name.
func CheckDocument(path string) (string, error) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(SupportedExtensions, ext) {
		return "", fmt.Errorf("unsupported file type %q (supported: %s)", ext, strings.Join(SupportedExtensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxDocumentSize {
		return "", fmt.Errorf("%s is %d bytes, larger than the %d byte limit", name, info.Size(), MaxDocumentSize)
	}
	return name, nil
}

func handleUploadDocument(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(request.GetString("path", ""))
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	name, err := CheckDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open %s: %v", path, err)), nil
	}
	defer f.Close()

	res, err := sc.Backend().UploadDocument(ctx, name, f)
	if err != nil {
		return common.BackendErrorResult("upload document", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (%d characters indexed)", res.Filename, res.Status, res.CharCount)), nil
}
