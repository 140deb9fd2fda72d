// Package logging builds slog loggers with console and JSON handlers.
//
// The console handler prints single-line records with a component prefix
// and key=value fields. NewFromConfig wires the logger from application
// configuration and tees output into the configured log directory.
package logging
