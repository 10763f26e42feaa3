package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"traject/internal/dataset"
	"traject/internal/storage"
	"traject/internal/testsupport"
)

func TestWriteEpisodeRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			layout := dataset.Layout{Root: t.TempDir(), ChunkSize: 1000}
			writer := storage.NewWriter(layout, compress)
			snap := testsupport.Snapshot(t, 3, 5)

			path, err := writer.WriteEpisode(context.Background(), snap, testsupport.StateSchema(), 2)
			if err != nil {
				t.Fatalf("WriteEpisode: %v", err)
			}
			if path != layout.DataUnitPath(3) {
				t.Fatalf("data unit written to %q, want %q", path, layout.DataUnitPath(3))
			}

			summary, frames, err := storage.ReadEpisode(context.Background(), path)
			if err != nil {
				t.Fatalf("ReadEpisode: %v", err)
			}
			if summary.EpisodeIndex != 3 || summary.TaskIndex != 2 || summary.Length != 5 {
				t.Fatalf("unexpected summary: %+v", summary)
			}
			if summary.Task != "test task" {
				t.Fatalf("unexpected task: %q", summary.Task)
			}
			if len(frames) != 5 {
				t.Fatalf("read %d frames, want 5", len(frames))
			}
			for i, frame := range frames {
				if frame.FrameIndex != int64(i) {
					t.Fatalf("frame %d has index %d", i, frame.FrameIndex)
				}
				state := frame.Values["observation.state"]
				if len(state) != 3 || state[0] != float64(i) {
					t.Fatalf("frame %d state = %v", i, state)
				}
			}
		})
	}
}

func TestWriteEpisodePreservesTimestamps(t *testing.T) {
	layout := dataset.Layout{Root: t.TempDir(), ChunkSize: 1000}
	writer := storage.NewWriter(layout, false)

	snap := testsupport.Snapshot(t, 0, 3)
	for i := range snap.Frames {
		snap.Frames[i].Timestamp = time.Duration(i) * 33333 * time.Microsecond
	}

	path, err := writer.WriteEpisode(context.Background(), snap, testsupport.StateSchema(), 0)
	if err != nil {
		t.Fatalf("WriteEpisode: %v", err)
	}

	_, frames, err := storage.ReadEpisode(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadEpisode: %v", err)
	}
	for i, frame := range frames {
		want := time.Duration(i) * 33333 * time.Microsecond
		if frame.Timestamp != want {
			t.Fatalf("frame %d timestamp = %v, want %v", i, frame.Timestamp, want)
		}
	}
}

func TestWriteEpisodeGroupsByChunk(t *testing.T) {
	layout := dataset.Layout{Root: t.TempDir(), ChunkSize: 2}
	writer := storage.NewWriter(layout, false)

	for _, index := range []int64{0, 1, 2} {
		snap := testsupport.Snapshot(t, index, 2)
		if _, err := writer.WriteEpisode(context.Background(), snap, testsupport.StateSchema(), 0); err != nil {
			t.Fatalf("WriteEpisode(%d): %v", index, err)
		}
	}

	if _, err := os.Stat(filepath.Join(layout.Root, "data", "chunk-000", "episode_000001.db")); err != nil {
		t.Fatalf("episode 1 missing from chunk 0: %v", err)
	}
	if _, err := os.Stat(filepath.Join(layout.Root, "data", "chunk-001", "episode_000002.db")); err != nil {
		t.Fatalf("episode 2 missing from chunk 1: %v", err)
	}
}

func TestWriteEpisodeReplacesStaleUnit(t *testing.T) {
	layout := dataset.Layout{Root: t.TempDir(), ChunkSize: 1000}
	writer := storage.NewWriter(layout, false)

	// A save attempt that failed after its data write leaves a populated
	// unit behind at this index. The next attempt owns the slot outright.
	if _, err := writer.WriteEpisode(context.Background(), testsupport.Snapshot(t, 0, 5), testsupport.StateSchema(), 0); err != nil {
		t.Fatalf("first WriteEpisode: %v", err)
	}

	retry := testsupport.Snapshot(t, 0, 2)
	path, err := writer.WriteEpisode(context.Background(), retry, testsupport.StateSchema(), 1)
	if err != nil {
		t.Fatalf("retry WriteEpisode: %v", err)
	}

	summary, frames, err := storage.ReadEpisode(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadEpisode: %v", err)
	}
	if summary.TaskIndex != 1 || summary.Length != 2 {
		t.Fatalf("stale rows survived the retry: %+v", summary)
	}
	if len(frames) != 2 {
		t.Fatalf("read %d frames, want 2", len(frames))
	}
}

func TestWriteEpisodeRemovesPartialFileOnFailure(t *testing.T) {
	layout := dataset.Layout{Root: t.TempDir(), ChunkSize: 1000}
	writer := storage.NewWriter(layout, false)
	snap := testsupport.Snapshot(t, 0, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := writer.WriteEpisode(ctx, snap, testsupport.StateSchema(), 0); err == nil {
		t.Fatal("expected write with cancelled context to fail")
	}
	if _, err := os.Stat(layout.DataUnitPath(0)); !os.IsNotExist(err) {
		t.Fatalf("partial data unit left behind: %v", err)
	}
}
