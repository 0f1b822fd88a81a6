// Package resources provides MCP resources for the signed-in session.
// Resources are read-only data that MCP clients can fetch without calling a
// tool, such as who is signed in and the newest inbox messages.
package resources
