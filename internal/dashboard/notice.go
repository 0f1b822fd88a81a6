package dashboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/teemow/autogmail/internal/apiclient"
)

// NoticeKind classifies a notice for display.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
)

// Messages shown after dashboard actions.
const (
	MsgDraftSaved        = "Draft saved to Gmail! Check your Drafts folder."
	MsgDraftSavedLocally = "Draft saved locally (backend unavailable)"
	MsgUploadSucceeded   = "Policy Uploaded & Indexed!"
	MsgUploadFailed      = "Upload Failed - Check if backend is running"
	MsgSyncDemo          = "Sync completed (demo mode)"
	MsgDemoInbox         = "Backend unavailable, showing demo emails"
)

// Notice is the last message shown to the user.
type Notice struct {
	Kind    NoticeKind
	Message string
	At      time.Time
}

// SyncedMessage is the notice after a successful sync.
func SyncedMessage(count int) string {
	return fmt.Sprintf("Synced %d emails to knowledge base!", count)
}

// describe returns the backend's detail message when there is one.
func describe(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			return detail
		}
	}
	return err.Error()
}
