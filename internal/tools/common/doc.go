// Package common provides shared helpers for the MCP tool packages: the
// instrumentation wrapper every tool handler is registered through and the
// argument parsing used by more than one tool.
package common
