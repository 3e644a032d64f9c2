// Package logger provides structured logging for the application.
//
// It builds log/slog handlers from configuration (JSON for production,
// colorized text for local runs) and carries request or job scoped loggers
// through context.
package logger
