package saver

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"traject/internal/dataset"
	"traject/internal/encoder"
	"traject/internal/episode"
	"traject/internal/logging"
	"traject/internal/metrics"
	"traject/internal/schema"
	"traject/internal/storage"
)

// Options configures a Saver.
type Options struct {
	QueueCapacity int
	BatchSize     int
	FPS           float64
	SessionID     string
}

// request is the only message type that crosses the queue. Exactly one of
// snap or flush is set; flush sentinels ride the same FIFO channel as
// episodes, which is what makes the drain barrier ordering-correct by
// construction.
type request struct {
	snap  *episode.Snapshot
	flush chan struct{}
}

// pending is an episode whose data unit is written but whose media is still
// waiting in the encode batch. Metadata commits only after the batch flushes.
// artifacts lists the files written for the episode so far (data unit plus
// media segment paths) so a failure can remove them.
type pending struct {
	record    dataset.EpisodeRecord
	stats     dataset.StatsRecord
	artifacts []string
	start     time.Time
}

// Saver drains sealed episodes from a bounded queue on a single background
// worker, performing encode + data write + ledger append + counter advance
// per episode, strictly in the order episodes were sealed.
type Saver struct {
	store   *dataset.Store
	writer  *storage.Writer
	batcher *encoder.Batcher
	sch     schema.Schema
	opts    Options
	logger  *slog.Logger

	queue    chan request
	inflight sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	pendings []pending

	saved  atomic.Int64
	failed atomic.Int64
}

// New constructs a Saver. The encoder is pluggable so tests can substitute a
// stub; batch size 1 disables grouping.
func New(store *dataset.Store, writer *storage.Writer, enc encoder.Encoder, sch schema.Schema, logger *slog.Logger, opts Options) *Saver {
	if opts.QueueCapacity < 1 {
		opts.QueueCapacity = 1
	}
	return &Saver{
		store:   store,
		writer:  writer,
		batcher: encoder.NewBatcher(enc, opts.BatchSize),
		sch:     sch,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "saver"),
		queue:   make(chan request, opts.QueueCapacity),
	}
}

// Start spawns the background worker. A second call is a no-op.
func (s *Saver) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stopCh, s.done)
}

// Stop signals cooperative termination: the worker finishes the item it is
// processing and pulls nothing further. It does not drain the queue; call
// WaitForCompletion first when no episode may be lost.
func (s *Saver) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	close(stopCh)
	<-done
}

// Enqueue hands a sealed snapshot to the saver. When the queue is at
// capacity it blocks rather than drops: a transiently slow saver throttles
// the producer instead of silently losing episodes.
func (s *Saver) Enqueue(ctx context.Context, snap *episode.Snapshot) error {
	s.inflight.Add(1)
	select {
	case s.queue <- request{snap: snap}:
	default:
		metrics.EnqueueBlockedTotal.Inc()
		select {
		case s.queue <- request{snap: snap}:
		case <-ctx.Done():
			s.inflight.Done()
			return ctx.Err()
		}
	}
	metrics.QueueDepth.Set(float64(len(s.queue)))
	return nil
}

// WaitForCompletion blocks until every episode enqueued before the call has
// been acknowledged (saved or failed) and any partial encode batch has been
// flushed. Sessions call this before exit; it is the no-silent-loss barrier.
func (s *Saver) WaitForCompletion(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return errors.New("saver is not running")
	}

	flush := make(chan struct{})
	select {
	case s.queue <- request{flush: flush}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-flush:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.inflight.Wait()
	return nil
}

// Saved returns the number of episodes durably persisted by this saver.
func (s *Saver) Saved() int64 { return s.saved.Load() }

// Failed returns the number of episodes whose save unit failed.
func (s *Saver) Failed() int64 { return s.failed.Load() }

func (s *Saver) run(stopCh, done chan struct{}) {
	defer close(done)
	ctx := context.Background()

	for {
		select {
		case <-stopCh:
			return
		default:
		}
		select {
		case <-stopCh:
			return
		case req := <-s.queue:
			metrics.QueueDepth.Set(float64(len(s.queue)))
			if req.flush != nil {
				s.handleFlush(ctx)
				close(req.flush)
				continue
			}
			s.handleEpisode(ctx, req.snap)
		}
	}
}

// handleEpisode runs the per-episode save unit. A failure is logged and the
// slot drained so a poisoned item can never deadlock the queue; counters only
// advance on full success. There is no automatic retry.
func (s *Saver) handleEpisode(ctx context.Context, snap *episode.Snapshot) {
	start := time.Now()

	taskIndex, err := s.store.EnsureTask(snap.Task)
	if err != nil {
		s.fail(snap.Index, err)
		return
	}

	unitPath, err := s.writer.WriteEpisode(ctx, snap, s.sch, taskIndex)
	if err != nil {
		s.fail(snap.Index, err)
		return
	}

	job := encoder.BuildJob(snap, s.sch, s.opts.FPS, s.store.Layout().MediaPath)
	artifacts := []string{unitPath}
	for _, stream := range job.Streams {
		artifacts = append(artifacts, stream.OutputPath)
	}

	s.pendings = append(s.pendings, pending{
		record: dataset.EpisodeRecord{
			EpisodeIndex: snap.Index,
			TaskIndex:    taskIndex,
			Task:         snap.Task,
			Length:       int64(snap.Length()),
			StartedAt:    snap.StartedAt,
			EndedAt:      snap.EndedAt,
			SessionID:    s.opts.SessionID,
		},
		stats: dataset.StatsRecord{
			EpisodeIndex: snap.Index,
			Stats:        dataset.ComputeStats(snap, s.sch),
		},
		artifacts: artifacts,
		start:     start,
	})

	flushed, err := s.batcher.Add(ctx, job)
	if err != nil {
		s.failPendings(err)
		return
	}
	if flushed {
		s.commitPendings()
	}
}

// handleFlush force-flushes a partial encode batch and commits whatever it
// covered. Called only via the flush sentinel.
func (s *Saver) handleFlush(ctx context.Context) {
	if err := s.batcher.Flush(ctx); err != nil {
		s.failPendings(err)
		return
	}
	s.commitPendings()
}

// commitPendings appends ledger entries and advances counters for every
// episode whose media is now durable, in index order.
func (s *Saver) commitPendings() {
	for _, p := range s.pendings {
		if err := s.store.CommitEpisode(p.record, p.stats); err != nil {
			s.removeArtifacts(p)
			s.fail(p.record.EpisodeIndex, err)
			continue
		}
		s.saved.Add(1)
		metrics.EpisodesSavedTotal.Inc()
		metrics.FramesWrittenTotal.Add(float64(p.record.Length))
		metrics.SaveDurationTotal.Add(time.Since(p.start).Seconds())
		s.logger.Info("episode saved",
			logging.Int64(logging.FieldEpisodeIndex, p.record.EpisodeIndex),
			logging.Int64(logging.FieldFrameCount, p.record.Length),
			logging.String(logging.FieldTask, p.record.Task),
		)
		s.inflight.Done()
	}
	s.pendings = nil
}

// failPendings marks every batched-but-unencoded episode as failed. An
// encode failure poisons the whole batch because their media shares the
// failed invocation. Their data units and any segments the batch already
// produced are removed with them.
func (s *Saver) failPendings(err error) {
	for _, p := range s.pendings {
		s.removeArtifacts(p)
		s.fail(p.record.EpisodeIndex, err)
	}
	s.pendings = nil
}

// removeArtifacts deletes the files written for an episode that will never
// reach the ledger, so the tree holds nothing the metadata does not account
// for.
func (s *Saver) removeArtifacts(p pending) {
	for _, path := range p.artifacts {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("orphaned artifact not removed",
				logging.Int64(logging.FieldEpisodeIndex, p.record.EpisodeIndex),
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
}

func (s *Saver) fail(episodeIndex int64, err error) {
	s.failed.Add(1)
	metrics.EpisodesFailedTotal.Inc()
	s.logger.Error("episode save failed; episode dropped without advancing counters",
		logging.Int64(logging.FieldEpisodeIndex, episodeIndex),
		logging.Error(err),
	)
	s.inflight.Done()
}
