// Package episode holds the in-memory episode buffer and the immutable
// snapshot type that crosses the capture/saver boundary.
//
// The buffer is single-owner: the capture goroutine appends frames and seals
// episode boundaries; sealing produces a Snapshot that shares no memory with
// the reset buffer, which is what makes the async handoff safe without locks.
package episode
