// Package preflight provides readiness checks run before a recording
// session touches the dataset: data root access, free disk space, and the
// encoder binary when video features are declared. A failed check aborts
// the session up front instead of hours into a capture run.
package preflight
