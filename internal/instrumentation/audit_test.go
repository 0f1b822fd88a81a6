package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testEmail   = "jane@example.com"
	testDomain  = "example.com"
	testTraceID = "abc123def456"
	testSpanID  = "span789"
	testTool    = "autogmail_generate_draft"
)

func attrMap(attrs []slog.Attr) map[string]slog.Attr {
	m := make(map[string]slog.Attr, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr
	}
	return m
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testTool)
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()
	if !ti.Success || ti.Error != "" || ti.Duration < 0 {
		t.Errorf("unexpected state after success: %+v", ti)
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q", ti.Status())
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testTool).CompleteWithError(errors.New("backend unavailable"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "backend unavailable" {
		t.Errorf("Error = %q", ti.Error)
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q", ti.Status())
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testTool).
		WithUser(testEmail).
		WithOperation(OperationGenerateDraft, "18c2f").
		WithReadOnly(true).
		CompleteSuccess()
	ti.TraceID = testTraceID

	attrs := attrMap(ti.LogAttrs())

	for _, key := range []string{"tool", "user_domain", "duration", "success", "read_only", "operation", "email_id", "trace_id"} {
		if _, ok := attrs[key]; !ok {
			t.Errorf("missing attribute %s", key)
		}
	}
	if _, ok := attrs["user"]; ok {
		t.Error("LogAttrs must not include the full email")
	}
	if got := attrs["user_domain"].Value.String(); got != testDomain {
		t.Errorf("user_domain = %q", got)
	}
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	attrs := attrMap(NewToolInvocation(testTool).CompleteSuccess().LogAttrs())

	for _, key := range []string{"operation", "email_id", "trace_id", "error"} {
		if _, ok := attrs[key]; ok {
			t.Errorf("%s should not be present when empty", key)
		}
	}
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation(testTool).WithUser(testEmail).CompleteWithError(errors.New("boom"))
	ti.TraceID = testTraceID
	ti.SpanID = testSpanID

	attrs := attrMap(ti.LogAuditAttrs())

	if got := attrs["user"].Value.String(); got != testEmail {
		t.Errorf("user = %q", got)
	}
	if got := attrs["span_id"].Value.String(); got != testSpanID {
		t.Errorf("span_id = %q", got)
	}
	if got := attrs["error"].Value.String(); got != "boom" {
		t.Errorf("error = %q", got)
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("test").WithSpanContext(context.Background())
	if ti.TraceID != "" || ti.SpanID != "" {
		t.Errorf("expected empty trace context, got %q/%q", ti.TraceID, ti.SpanID)
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	tests := []struct {
		name       string
		config     AuditLoggingConfig
		success    bool
		wantOutput []string
		wantAbsent []string
	}{
		{
			name:       "success without PII",
			config:     AuditLoggingConfig{Enabled: true},
			success:    true,
			wantOutput: []string{"tool_executed", "user_domain=" + testDomain},
			wantAbsent: []string{testEmail},
		},
		{
			name:       "failure with PII",
			config:     AuditLoggingConfig{Enabled: true, IncludePII: true},
			wantOutput: []string{"tool_failed", "user=" + testEmail},
		},
		{
			name:       "disabled",
			config:     AuditLoggingConfig{Enabled: false},
			success:    true,
			wantAbsent: []string{"tool_executed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			al := NewAuditLoggerWithConfig(slog.New(slog.NewTextHandler(&buf, nil)), tt.config)

			ti := NewToolInvocation(testTool).WithUser(testEmail)
			if tt.success {
				ti.CompleteSuccess()
			} else {
				ti.CompleteWithError(errors.New("failed"))
			}
			al.LogToolInvocation(ti)

			out := buf.String()
			for _, want := range tt.wantOutput {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(out, absent) {
					t.Errorf("output %q must not contain %q", out, absent)
				}
			}
		})
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var al *AuditLogger
	al.LogToolInvocation(NewToolInvocation("test").CompleteSuccess())

	if NewAuditLogger(nil).logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}
