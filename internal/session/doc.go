// Package session coordinates one recording run end to end.
//
// The coordinator computes which episode indices a run must produce from the
// mode (create or resume) and the cumulative target count, and gates the
// pipeline: compatibility is validated before a single frame is captured.
// The session then drives the capture loop against a Source, seals episode
// boundaries, and hands snapshots to the saver, finishing with the drain
// barrier so process exit never loses an enqueued episode.
//
// Lifecycle: Idle -> Validating -> Recording -> Draining -> Closed, with
// Aborted terminal from Validating or Recording.
package session
