package saver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"traject/internal/dataset"
	"traject/internal/encoder"
	"traject/internal/episode"
	"traject/internal/logging"
	"traject/internal/saver"
	"traject/internal/schema"
	"traject/internal/storage"
	"traject/internal/testsupport"
)

func newSaver(t *testing.T, stub *testsupport.StubEncoder, opts saver.Options) (*saver.Saver, *dataset.Store) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "pick-cube")
	store := testsupport.MustCreateDataset(t, root, 30, testsupport.StateSchema())
	writer := storage.NewWriter(store.Layout(), false)
	opts.FPS = 30
	opts.SessionID = "test-session"
	sv := saver.New(store, writer, stub, testsupport.StateSchema(), logging.NewNop(), opts)
	return sv, store
}

func TestSaverPersistsInSealOrder(t *testing.T) {
	stub := &testsupport.StubEncoder{}
	sv, store := newSaver(t, stub, saver.Options{QueueCapacity: 4, BatchSize: 1})
	sv.Start()
	defer sv.Stop()

	ctx := context.Background()
	for i := int64(0); i < 4; i++ {
		if err := sv.Enqueue(ctx, testsupport.Snapshot(t, i, 3)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := sv.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	if sv.Saved() != 4 || sv.Failed() != 0 {
		t.Fatalf("saved/failed = %d/%d, want 4/0", sv.Saved(), sv.Failed())
	}
	if store.TotalEpisodes() != 4 {
		t.Fatalf("TotalEpisodes = %d, want 4", store.TotalEpisodes())
	}
	if store.Info().TotalFrames != 12 {
		t.Fatalf("TotalFrames = %d, want 12", store.Info().TotalFrames)
	}

	records, err := store.Episodes()
	if err != nil {
		t.Fatalf("Episodes: %v", err)
	}
	for i, record := range records {
		if record.EpisodeIndex != int64(i) {
			t.Fatalf("ledger out of order at %d: %d", i, record.EpisodeIndex)
		}
		if record.SessionID != "test-session" {
			t.Fatalf("record %d missing session id: %+v", i, record)
		}
	}

	// Batch size 1: one encoder invocation per episode, in seal order.
	batches := stub.Batches()
	if len(batches) != 4 {
		t.Fatalf("encoder ran %d times, want 4", len(batches))
	}
	for i, batch := range batches {
		if len(batch) != 1 || batch[0] != int64(i) {
			t.Fatalf("unexpected encode order: %v", batches)
		}
	}
}

func TestSaverBatchesEncodes(t *testing.T) {
	stub := &testsupport.StubEncoder{}
	sv, store := newSaver(t, stub, saver.Options{QueueCapacity: 4, BatchSize: 2})
	sv.Start()
	defer sv.Stop()

	ctx := context.Background()
	for i := int64(0); i < 3; i++ {
		if err := sv.Enqueue(ctx, testsupport.Snapshot(t, i, 2)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := sv.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	// Two full episodes flush as a pair; the drain barrier force-flushes the
	// trailing partial batch so nothing is stranded.
	batches := stub.Batches()
	if len(batches) != 2 {
		t.Fatalf("encoder ran %d times, want 2: %v", len(batches), batches)
	}
	if len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Fatalf("unexpected batch shapes: %v", batches)
	}
	if sv.Saved() != 3 {
		t.Fatalf("Saved = %d, want 3", sv.Saved())
	}
	if store.TotalEpisodes() != 3 {
		t.Fatalf("TotalEpisodes = %d, want 3", store.TotalEpisodes())
	}
}

func TestSaverEncodeFailureDoesNotAdvanceCounters(t *testing.T) {
	stub := &testsupport.StubEncoder{Err: errors.New("encode failed")}
	sv, store := newSaver(t, stub, saver.Options{QueueCapacity: 4, BatchSize: 2})
	sv.Start()
	defer sv.Stop()

	ctx := context.Background()
	for i := int64(0); i < 2; i++ {
		if err := sv.Enqueue(ctx, testsupport.Snapshot(t, i, 2)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := sv.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	// The whole batch shares the failed invocation.
	if sv.Failed() != 2 || sv.Saved() != 0 {
		t.Fatalf("saved/failed = %d/%d, want 0/2", sv.Saved(), sv.Failed())
	}
	if store.TotalEpisodes() != 0 {
		t.Fatalf("failed episodes advanced TotalEpisodes to %d", store.TotalEpisodes())
	}
	records, err := store.Episodes()
	if err != nil {
		t.Fatalf("Episodes: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("failed episodes reached the ledger: %v", records)
	}
	for i := int64(0); i < 2; i++ {
		if _, err := os.Stat(store.Layout().DataUnitPath(i)); !os.IsNotExist(err) {
			t.Fatalf("data unit for failed episode %d left on disk: %v", i, err)
		}
	}
}

func videoSchema() schema.Schema {
	return schema.Schema{
		"action":            {DType: schema.Float32, Shape: []int{2}},
		"observation.image": {DType: schema.Video, Shape: []int{4, 4, 3}},
	}
}

func videoSnapshot(t *testing.T, index int64, frames int) *episode.Snapshot {
	t.Helper()

	buffer := episode.NewBuffer(videoSchema(), index, "test task")
	for i := 0; i < frames; i++ {
		err := buffer.Append(episode.Frame{Values: map[string]schema.Value{
			"action":            {Floats: []float64{float64(i), 0}},
			"observation.image": {Image: []byte{0xff, 0xd8, byte(i)}},
		}})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	snap, err := buffer.Seal()
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return snap
}

// touchEncoder writes every stream's segment file before reporting its
// configured result, mimicking ffmpeg output that lands on disk ahead of a
// later failure in the same batch.
type touchEncoder struct {
	err error
}

func (e *touchEncoder) EncodeBatch(_ context.Context, jobs []encoder.Job) error {
	for _, job := range jobs {
		for _, stream := range job.Streams {
			if err := os.MkdirAll(filepath.Dir(stream.OutputPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(stream.OutputPath, []byte("segment"), 0o644); err != nil {
				return err
			}
		}
	}
	return e.err
}

func TestEncodeFailureRemovesOrphanedArtifacts(t *testing.T) {
	sch := videoSchema()
	root := filepath.Join(t.TempDir(), "pick-cube")
	store := testsupport.MustCreateDataset(t, root, 30, sch)
	writer := storage.NewWriter(store.Layout(), false)
	sv := saver.New(store, writer, &touchEncoder{err: errors.New("encode failed")}, sch, logging.NewNop(), saver.Options{
		QueueCapacity: 2,
		BatchSize:     2,
		FPS:           30,
		SessionID:     "test-session",
	})
	sv.Start()
	defer sv.Stop()

	ctx := context.Background()
	for i := int64(0); i < 2; i++ {
		if err := sv.Enqueue(ctx, videoSnapshot(t, i, 2)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := sv.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	if sv.Failed() != 2 || sv.Saved() != 0 {
		t.Fatalf("saved/failed = %d/%d, want 0/2", sv.Saved(), sv.Failed())
	}
	// Neither the data units nor the segments the batch produced before
	// failing may outlive the episodes the ledger will never know about.
	layout := store.Layout()
	for i := int64(0); i < 2; i++ {
		if _, err := os.Stat(layout.DataUnitPath(i)); !os.IsNotExist(err) {
			t.Fatalf("data unit for failed episode %d left on disk: %v", i, err)
		}
		if _, err := os.Stat(layout.MediaPath(i, "observation.image")); !os.IsNotExist(err) {
			t.Fatalf("media segment for failed episode %d left on disk: %v", i, err)
		}
	}
}

func TestResumeRetriesSlotWithLeftoverDataUnit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pick-cube")
	sch := testsupport.StateSchema()
	store := testsupport.MustCreateDataset(t, root, 30, sch)
	writer := storage.NewWriter(store.Layout(), false)

	// A session that died between the data write and cleanup leaves a
	// populated unit at index 0 with counters still at zero.
	if _, err := writer.WriteEpisode(context.Background(), testsupport.Snapshot(t, 0, 2), sch, 0); err != nil {
		t.Fatalf("WriteEpisode: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	resumed, err := dataset.Resume(root, 30, sch)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	t.Cleanup(func() { _ = resumed.Close() })

	sv := saver.New(resumed, storage.NewWriter(resumed.Layout(), false), &testsupport.StubEncoder{}, sch, logging.NewNop(), saver.Options{
		QueueCapacity: 2,
		BatchSize:     1,
		FPS:           30,
		SessionID:     "retry-session",
	})
	sv.Start()
	defer sv.Stop()

	ctx := context.Background()
	if err := sv.Enqueue(ctx, testsupport.Snapshot(t, 0, 3)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := sv.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	if sv.Saved() != 1 || sv.Failed() != 0 {
		t.Fatalf("saved/failed = %d/%d, want 1/0", sv.Saved(), sv.Failed())
	}
	if resumed.TotalEpisodes() != 1 {
		t.Fatalf("TotalEpisodes = %d, want 1", resumed.TotalEpisodes())
	}
	// The fresh three-frame write replaced the stale two-frame unit.
	if resumed.Info().TotalFrames != 3 {
		t.Fatalf("TotalFrames = %d, want 3", resumed.Info().TotalFrames)
	}
}

func TestEnqueueBlocksUntilContextExpires(t *testing.T) {
	release := make(chan struct{})
	stub := &testsupport.StubEncoder{Delay: func() { <-release }}
	sv, _ := newSaver(t, stub, saver.Options{QueueCapacity: 1, BatchSize: 1})
	sv.Start()
	defer sv.Stop()

	ctx := context.Background()
	// First episode occupies the worker inside the stalled encode; the second
	// fills the queue.
	if err := sv.Enqueue(ctx, testsupport.Snapshot(t, 0, 2)); err != nil {
		t.Fatalf("Enqueue(0): %v", err)
	}
	if err := sv.Enqueue(ctx, testsupport.Snapshot(t, 1, 2)); err != nil {
		t.Fatalf("Enqueue(1): %v", err)
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := sv.Enqueue(blockedCtx, testsupport.Snapshot(t, 2, 2))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded from a full queue, got %v", err)
	}

	close(release)
	if err := sv.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if sv.Saved() != 2 {
		t.Fatalf("Saved = %d, want 2", sv.Saved())
	}
}

func TestWaitForCompletionRequiresRunningSaver(t *testing.T) {
	sv, _ := newSaver(t, &testsupport.StubEncoder{}, saver.Options{QueueCapacity: 1, BatchSize: 1})
	if err := sv.WaitForCompletion(context.Background()); err == nil {
		t.Fatal("expected error before Start")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	sv, _ := newSaver(t, &testsupport.StubEncoder{}, saver.Options{QueueCapacity: 1, BatchSize: 1})
	sv.Start()
	sv.Start() // no-op
	sv.Stop()
	sv.Stop() // no-op
}
