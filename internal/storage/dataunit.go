package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite"

	"traject/internal/dataset"
	"traject/internal/episode"
	"traject/internal/schema"
)

const dataUnitSchema = `
CREATE TABLE IF NOT EXISTS episode (
    episode_index INTEGER NOT NULL,
    task_index    INTEGER NOT NULL,
    task          TEXT NOT NULL,
    length        INTEGER NOT NULL,
    started_at    TEXT NOT NULL,
    ended_at      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
    frame_index  INTEGER PRIMARY KEY,
    timestamp_us INTEGER NOT NULL,
    compressed   INTEGER NOT NULL,
    payload      BLOB NOT NULL
);`

// Writer persists one episode's frame table as a standalone SQLite file under
// the dataset's data/ chunk directories. Numeric feature payloads are stored
// as JSON blobs, snappy-compressed when the config enables it; video payloads
// are handled by the encoder, not here.
type Writer struct {
	layout   dataset.Layout
	compress bool
}

// NewWriter returns a data unit writer for the given dataset layout.
func NewWriter(layout dataset.Layout, compress bool) *Writer {
	return &Writer{layout: layout, compress: compress}
}

// WriteEpisode writes the episode's data unit. The write is all-or-nothing:
// a partial file is removed on failure, and any file already at the target
// path is removed up front. An existing file there can only be the remnant
// of an earlier failed save for the same index, since counters never advance
// for an uncommitted episode, so a retry or a later resume must not inherit
// its rows.
func (w *Writer) WriteEpisode(ctx context.Context, snap *episode.Snapshot, sch schema.Schema, taskIndex int64) (string, error) {
	path := w.layout.DataUnitPath(snap.Index)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create chunk directory: %w", err)
	}
	if err := removeDataUnit(path); err != nil {
		return "", fmt.Errorf("remove stale data unit: %w", err)
	}

	db, err := openDataUnit(path)
	if err != nil {
		return "", err
	}

	if err := w.writeAll(ctx, db, snap, sch, taskIndex); err != nil {
		_ = db.Close()
		_ = removeDataUnit(path)
		return "", err
	}
	if err := db.Close(); err != nil {
		_ = removeDataUnit(path)
		return "", fmt.Errorf("close data unit: %w", err)
	}
	return path, nil
}

// removeDataUnit deletes a unit file along with any WAL sidecars a crashed
// writer may have left next to it.
func removeDataUnit(path string) error {
	for _, name := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (w *Writer) writeAll(ctx context.Context, db *sql.DB, snap *episode.Snapshot, sch schema.Schema, taskIndex int64) error {
	if _, err := db.ExecContext(ctx, dataUnitSchema); err != nil {
		return fmt.Errorf("apply data unit schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin data unit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO episode (episode_index, task_index, task, length, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Index,
		taskIndex,
		snap.Task,
		len(snap.Frames),
		snap.StartedAt.UTC().Format(time.RFC3339Nano),
		snap.EndedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert episode row: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frames (frame_index, timestamp_us, compressed, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	numeric := sch.NumericNames()
	for i, frame := range snap.Frames {
		payload, err := encodeFramePayload(frame, numeric)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		compressed := 0
		if w.compress {
			payload = snappy.Encode(nil, payload)
			compressed = 1
		}
		if _, err := stmt.ExecContext(ctx, i, frame.Timestamp.Microseconds(), compressed, payload); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit data unit: %w", err)
	}
	return nil
}

func encodeFramePayload(frame episode.Frame, numeric []string) ([]byte, error) {
	values := make(map[string][]float64, len(numeric))
	for _, name := range numeric {
		values[name] = frame.Values[name].Floats
	}
	return json.Marshal(values)
}

func openDataUnit(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open data unit: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}
