package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = mcpserver.ToolHandlerFunc

// ToolSpec describes a tool for instrumentation.
type ToolSpec struct {
	// Name is the MCP tool name
	Name string

	// Operation is the backend operation the tool performs
	Operation string

	// ReadOnly marks tools that do not change the mailbox or knowledge base
	ReadOnly bool

	// EmailIDArg names the argument holding the target email id, if any
	EmailIDArg string
}

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and audit
// logging. A result with IsError set counts as a failed invocation.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler(spec, sc, handler))
func InstrumentedToolHandler(spec ToolSpec, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		attrs := instrumentation.NewSpanAttributeBuilder().
			WithOperation(spec.Operation).
			WithReadOnly(spec.ReadOnly)
		emailID := ""
		if spec.EmailIDArg != "" {
			emailID = request.GetString(spec.EmailIDArg, "")
			attrs.WithEmailID(emailID)
		}

		ctx, span := instrumentation.StartToolSpan(ctx, spec.Name, attrs.Build()...)
		defer span.End()

		user := sc.SignedInSubject(ctx)
		invocation := instrumentation.NewToolInvocation(spec.Name).
			WithSpanContext(ctx).
			WithUser(user).
			WithOperation(spec.Operation, emailID).
			WithReadOnly(spec.ReadOnly)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			invocation.Complete(false, nil)
			span.SetAttributes(attribute.Bool("mcp.result.error", true))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		if metrics := sc.Metrics(); metrics != nil {
			if user != "" {
				metrics.RecordToolInvocationWithUser(ctx, spec.Name, invocation.Status(), user, duration)
			} else {
				metrics.RecordToolInvocation(ctx, spec.Name, invocation.Status(), duration)
			}
		}
		if auditLogger := sc.AuditLogger(); auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}
