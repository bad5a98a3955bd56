// Package logging assembles structured slog loggers and formatting helpers used
// across shotsort services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs and file names. The package also provides a no-op logger
// for tests and wiring code that cannot fail, plus MaskSecret for the one
// value that must never reach a log sink verbatim: the provider credential.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape and routing guarantees as the rest of the system.
package logging
