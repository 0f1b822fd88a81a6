package dashboard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/teemow/autogmail/internal/backend"
)

// ReplyPrefix is prepended to the subject of a reply draft.
const ReplyPrefix = "Re: "

var recipientPattern = regexp.MustCompile(`<(.+)>`)

// ExtractRecipient returns the address inside angle brackets of a From header,
// or the whole sender when there are none.
func ExtractRecipient(sender string) string {
	if m := recipientPattern.FindStringSubmatch(sender); m != nil {
		return m[1]
	}
	return sender
}

// DisplayName returns the part of a From header before the address.
func DisplayName(sender string) string {
	name, _, _ := strings.Cut(sender, "<")
	return strings.TrimSpace(name)
}

// ReplySubject returns the subject for a reply.
func ReplySubject(subject string) string {
	return ReplyPrefix + subject
}

// ComposeEmailText builds the text the draft generator receives.
func ComposeEmailText(subject, sender, body string) string {
	return fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", subject, sender, body)
}

// DemoInbox returns the placeholder inbox shown when the backend is unreachable.
func DemoInbox() []backend.Email {
	return []backend.Email{
		{
			ID:       "1",
			ThreadID: "1",
			Subject:  "Q4 Report Review Request",
			Sender:   "John Smith <john@company.com>",
			Snippet:  "Hi, could you please review the Q4 financial report and provide your feedback by end of day...",
		},
		{
			ID:       "2",
			ThreadID: "2",
			Subject:  "Meeting Tomorrow at 2pm",
			Sender:   "Sarah Johnson <sarah@company.com>",
			Snippet:  "Just confirming our meeting tomorrow. We will be discussing the new product launch...",
		},
		{
			ID:       "3",
			ThreadID: "3",
			Subject:  "Partnership Proposal",
			Sender:   "Mike Chen <mike@partner.com>",
			Snippet:  "Following up on our conversation last week, I wanted to share a formal partnership proposal...",
		},
	}
}

// DemoDraft returns the placeholder reply greeting the first word of sender.
func DemoDraft(sender string) string {
	first, _, _ := strings.Cut(sender, " ")
	return "Hi " + first + ",\n\n" +
		"Thank you for reaching out. I've reviewed your message and wanted to get back to you promptly.\n\n" +
		"I'll look into this and provide a detailed response by the end of the day. " +
		"If you need anything urgent in the meantime, please don't hesitate to call me.\n\n" +
		"Best regards"
}
