// Package cmd implements the command-line interface for autogmail.
//
// This package provides the following commands:
//   - serve: Run the web client (landing page, sign-in and dashboard)
//   - mcp: Start the MCP server to expose the backend to AI assistants
//   - login, logout, status: Manage the stored backend token
//   - inbox, email, draft, save-draft, upload, sync: Call the backend directly
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
