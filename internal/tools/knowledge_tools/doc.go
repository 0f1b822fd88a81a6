// Package knowledge_tools exposes the knowledge base of the AutoGmail backend
// as MCP tools. autogmail_upload_document indexes a local PDF, DOCX or text file
// so later drafts can cite it. It changes the user's knowledge base and is only
// registered when writes are enabled.
package knowledge_tools
