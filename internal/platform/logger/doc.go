// Package logger provides structured logging functionality for the application.
//
// It uses the standard log/slog package to emit JSON logs at a configurable
// level, optionally to a size-rotated file, and carries request-scoped loggers
// through context.Context.
package logger
