// Package logging provides structured logging utilities for autogmail.
//
// Everything logs through log/slog. This package builds the process logger from the
// --log-level and --log-format flags and keeps attribute names consistent.
//
//	logger := logging.WithOperation(slog.Default(), "list_inbox")
//	logger.Info("inbox loaded", logging.Status(logging.StatusSuccess))
//
// Bearer tokens are never logged; use SanitizeToken. Email addresses are logged
// through UserHash or Domain.
package logging
