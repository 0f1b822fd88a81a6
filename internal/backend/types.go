package backend

// Email is one inbox entry as listed by the backend.
type Email struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Subject  string `json:"subject"`
	Sender   string `json:"sender"`
}

// MessageRef identifies a message without its content (sent mail listing).
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// EmailBody is a single email with its full plain text body.
type EmailBody struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
	Snippet string `json:"snippet"`
}

// Text returns the body, or the snippet when the body is empty.
func (e *EmailBody) Text() string {
	if e.Body != "" {
		return e.Body
	}
	return e.Snippet
}

// DraftReply is a generated reply and the knowledge base passages it was based on.
type DraftReply struct {
	Draft       string   `json:"draft"`
	ContextUsed []string `json:"context_used"`
}

// DraftRequest asks the backend to create a Gmail draft.
type DraftRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// SavedDraft is the backend's answer to a DraftRequest.
type SavedDraft struct {
	Status  string `json:"status"`
	DraftID string `json:"draft_id"`
}

// UploadResult reports an indexed document.
type UploadResult struct {
	Filename  string `json:"filename"`
	CharCount int    `json:"char_count"`
	Status    string `json:"status"`
}

// SyncResult reports how many sent emails were indexed.
type SyncResult struct {
	Status      string `json:"status"`
	SyncedCount int    `json:"synced_count"`
}

type generateRequest struct {
	EmailText string `json:"email_text"`
}

type loginResponse struct {
	URL string `json:"url"`
}
