// Package dataset owns the durable metadata ledger of a recorded dataset.
//
// A dataset is a directory: meta/info.json holds the aggregate counters,
// feature schema, and frame rate; meta/episodes.jsonl, episodes_stats.jsonl,
// and tasks.jsonl are append-only ledgers; data/ and videos/ hold per-episode
// artifacts grouped into fixed-size chunk directories.
//
// The Store enforces create/resume semantics: a resume must match the
// existing frame rate and schema exactly or fail before any frame is
// captured, and a corrupt ledger fails fast rather than silently truncating
// history. info.json is written canonically (RFC 8785) and atomically, so a
// resume with no new recording leaves every metadata byte unchanged.
//
// The Store is deliberately not thread-safe: single-writer discipline (only
// the saver mutates it) substitutes for locking. Cross-process exclusion is a
// flock held for the lifetime of the session.
package dataset
