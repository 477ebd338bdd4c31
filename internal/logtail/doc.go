// Package logtail reads the tail of the client's own log file for the TUI
// log view.
//
// Read returns the last N lines of a file in one pass, using a ring buffer
// so memory stays O(N) however large the log grows:
//
//	lines, err := logtail.Read(cfg.Log.File, 200)
//
// The log is written by a slog JSON handler. Parse decodes a line into a
// Record (time, level, message and remaining attributes) and Format renders
// it compactly:
//
//	{"time":"2024-05-01T12:00:00Z","level":"INFO","msg":"reload finished","notes":3}
//	12:00:00 INFO  reload finished notes=3
//
// Lines that are not JSON pass through unchanged.
package logtail
