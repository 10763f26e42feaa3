// Package saver is the asynchronous persistence pipeline between the capture
// loop and durable storage.
//
// Capture seals episodes and enqueues them on a bounded channel; a single
// background worker drains it in FIFO order, running the per-episode save
// unit (encode media, write the data unit, append ledgers, advance counters).
// Because the worker is the only goroutine touching the dataset store, the
// counters need no locks. Backpressure is blocking, never dropping: a slow
// saver throttles capture instead of losing episodes.
//
// WaitForCompletion is the drain barrier: a sentinel rides the same queue as
// episodes, so by the time it is serviced every earlier episode has been
// acknowledged and any partial encode batch has been force-flushed.
//
// A failed save unit is logged and the episode dropped without advancing
// counters; there is deliberately no retry or dead-letter path yet.
package saver
