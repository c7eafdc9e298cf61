// Package logging assembles the slog loggers used across cardmint.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with the run id, pipeline stage, and
// per-stage correlation id. A no-op logger is provided for tests and for
// wiring code that must not fail.
package logging
