package dataset

import "errors"

// Sentinel errors for the create/resume validation path. Sessions classify
// these with errors.Is before a single frame is captured.
var (
	// ErrNotFound reports a resume request against a location with no dataset.
	ErrNotFound = errors.New("dataset not found")
	// ErrConfigMismatch reports a frame rate that differs from the existing dataset.
	ErrConfigMismatch = errors.New("dataset config mismatch")
	// ErrSchemaMismatch reports a feature schema that differs from the existing dataset.
	ErrSchemaMismatch = errors.New("dataset schema mismatch")
	// ErrCorrupt reports a present but unreadable or inconsistent ledger.
	ErrCorrupt = errors.New("dataset ledger corrupt")
	// ErrExists reports a create request against a location that already holds a dataset.
	ErrExists = errors.New("dataset already exists")
	// ErrLocked reports that another session holds the dataset lock.
	ErrLocked = errors.New("dataset locked by another session")
)
