// Package logging provides structured logging utilities for the agendahook application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Secret sanitization (OAuth tokens, webhook URLs)
//   - Consistent attribute naming across the codebase
//   - An adapter that routes cron scheduler output through slog
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.fetch")
//	logger.Info("fetched calendar",
//	    logging.Calendar("Work"),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
// OAuth tokens and webhook URLs are credentials; log them only through
// SanitizeToken and SanitizeWebhookURL.
package logging
