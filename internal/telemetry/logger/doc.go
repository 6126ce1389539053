// Package logger builds the structured loggers used by the micropay
// binaries.
//
// It wraps log/slog: JSON or text output, a process-wide level that can
// be changed at runtime, and redaction of key material before it reaches
// the log stream.
package logger
