package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address so that logs and
// metrics carry a low-cardinality value instead of the address.
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return StatusUnknown
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return StatusUnknown
}

// Backend operation names used for spans, metrics and audit logs.
const (
	OperationLoginURL       = "login_url"
	OperationListInbox      = "list_inbox"
	OperationListSent       = "list_sent"
	OperationGetEmail       = "get_email"
	OperationGenerateDraft  = "generate_draft"
	OperationSaveDraft      = "save_draft"
	OperationUploadDocument = "upload_document"
	OperationSyncSent       = "sync_sent"
)
