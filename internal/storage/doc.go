// Package storage writes and reads per-episode data units.
//
// Each episode persists as one standalone SQLite file under the dataset's
// chunked data/ tree: a single-row episode table plus a frames table holding
// timestamped, optionally snappy-compressed numeric payloads. Units are
// written once, whole, by the saver; a failed write leaves no partial file.
package storage
