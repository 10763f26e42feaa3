// Package logging builds the slog loggers used across traject.
//
// It provides a human-readable console handler and a JSON handler, both
// driven by the [logging] config section, plus small helpers for attaching
// standardized attributes (component, dataset, episode_index) so log lines
// stay greppable across the capture and saver goroutines.
package logging
