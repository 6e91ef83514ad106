// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for the logging patterns used by the server and the CLIs.
//
// Key features:
//   - JSON output for the server, text output on stderr for CLIs
//   - Request ID and run ID propagation
//   - Configurable log levels through LOG_LEVEL
//
// Example usage:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRunID(ctx, uuid.NewString())
//	logging.FromContext(ctx).InfoContext(ctx, "polish started")
package logging
