// Package mail_tools exposes the mailbox operations of the AutoGmail backend as
// MCP tools.
//
// Read tools (always registered):
//   - autogmail_list_inbox: list the most recent inbox messages
//   - autogmail_get_email: fetch the full body of one or more messages
//   - autogmail_generate_draft: generate a reply grounded in the knowledge base
//
// Write tools (registered only when writes are enabled):
//   - autogmail_save_draft: store a reply as a Gmail draft
//   - autogmail_sync_sent: index recent sent mail so drafts match the user's tone
//
// Tools act on behalf of the user whose token is in the server's token store.
// Backend failures are returned as tool error results, never as Go errors.
package mail_tools
