package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"traject/internal/dataset"
	"traject/internal/encoder"
	"traject/internal/episode"
	"traject/internal/logging"
	"traject/internal/saver"
	"traject/internal/schema"
	"traject/internal/storage"
)

// A schema violation aborts the in-progress episode and retries the slot;
// this many consecutive violations mean the source is persistently
// misconfigured and the session aborts instead of spinning.
const maxConsecutiveViolations = 3

// Params carries everything a recording session needs.
type Params struct {
	Mode             Mode
	DatasetDir       string
	TargetEpisodes   int64
	FPS              float64
	Schema           schema.Schema
	Task             string
	Source           Source
	Encoder          encoder.Encoder
	Logger           *slog.Logger
	QueueCapacity    int
	BatchSize        int
	ChunkSize        int
	FramesPerEpisode int
	CompressFrames   bool
}

// Summary reports what a finished session did.
type Summary struct {
	SessionID  string
	StartIndex int64
	Recorded   int64
	Failed     int64
	NewTotal   int64
}

// Session coordinates one recording run: it validates create/resume
// compatibility before any frame is captured, computes the episode index
// range to produce, drives the capture loop, and drains the persistence
// pipeline before closing.
type Session struct {
	params Params
	id     string
	logger *slog.Logger

	mu    sync.Mutex
	state State

	plan  Plan
	store *dataset.Store
	saver *saver.Saver
}

// New constructs an idle session.
func New(params Params) *Session {
	return &Session{
		params: params,
		id:     uuid.NewString(),
		logger: logging.NewComponentLogger(params.Logger, "session"),
		state:  StateIdle,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Plan returns the index arithmetic computed during Validate.
func (s *Session) Plan() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Progress reports live counters for the status endpoint.
func (s *Session) Progress() (saved, failed int64) {
	s.mu.Lock()
	sv := s.saver
	s.mu.Unlock()
	if sv == nil {
		return 0, 0
	}
	return sv.Saved(), sv.Failed()
}

// Validate opens or resumes the dataset and computes the session plan. All
// pre-capture failures (NotFound, ConfigMismatch, SchemaMismatch, a held
// lock) surface here, before any resource beyond the metadata ledger is
// touched; on failure the session is Aborted.
func (s *Session) Validate() error {
	s.setState(StateValidating)

	var (
		store *dataset.Store
		err   error
	)
	switch s.params.Mode {
	case ModeCreate:
		store, err = dataset.Create(s.params.DatasetDir, s.params.FPS, s.params.Schema, s.params.ChunkSize)
	case ModeResume:
		store, err = dataset.Resume(s.params.DatasetDir, s.params.FPS, s.params.Schema)
	default:
		err = fmt.Errorf("unknown session mode %q", s.params.Mode)
	}
	if err != nil {
		s.setState(StateAborted)
		return err
	}

	plan := ComputePlan(s.params.Mode, s.params.TargetEpisodes, store.TotalEpisodes())
	s.mu.Lock()
	s.store = store
	s.plan = plan
	s.mu.Unlock()
	return nil
}

// Run executes the capture loop for the planned episode slots, then drains
// the persistence pipeline. When the plan has nothing to record it emits a
// notice and closes successfully without entering the capture loop.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	store, plan := s.store, s.plan
	s.mu.Unlock()
	if store == nil {
		return Summary{}, errors.New("session not validated")
	}
	defer store.Close()

	if plan.Remaining == 0 {
		s.logger.Info("target episode count already met; nothing to record",
			logging.Int64("existing_total", plan.ExistingTotal),
			logging.Int64("target", plan.TargetEpisodes),
		)
		s.setState(StateClosed)
		return Summary{SessionID: s.id, StartIndex: plan.StartIndex, NewTotal: plan.ExistingTotal}, nil
	}

	writer := storage.NewWriter(store.Layout(), s.params.CompressFrames)
	sv := saver.New(store, writer, s.params.Encoder, s.params.Schema, s.params.Logger, saver.Options{
		QueueCapacity: s.params.QueueCapacity,
		BatchSize:     s.params.BatchSize,
		FPS:           s.params.FPS,
		SessionID:     s.id,
	})
	s.mu.Lock()
	s.saver = sv
	s.mu.Unlock()

	sv.Start()
	s.setState(StateRecording)
	s.logger.Info("recording session started",
		logging.String(logging.FieldSessionID, s.id),
		logging.Int64("start_index", plan.StartIndex),
		logging.Int64("episodes", plan.Remaining),
		logging.Float64("fps", s.params.FPS),
	)

	captureErr := s.capture(ctx, sv)

	s.setState(StateDraining)
	drainCtx := ctx
	if drainCtx.Err() != nil {
		// The session was cancelled mid-capture; still drain what was
		// already sealed so nothing enqueued is silently lost.
		drainCtx = context.Background()
	}
	if err := sv.WaitForCompletion(drainCtx); err != nil && captureErr == nil {
		captureErr = err
	}
	sv.Stop()

	summary := Summary{
		SessionID:  s.id,
		StartIndex: plan.StartIndex,
		Recorded:   sv.Saved(),
		Failed:     sv.Failed(),
		NewTotal:   store.TotalEpisodes(),
	}

	if captureErr != nil {
		s.setState(StateAborted)
		return summary, captureErr
	}
	s.setState(StateClosed)
	return summary, nil
}

// capture fills and seals one episode per planned slot. Sealing and the
// local buffer reset are the only work on the capture path; everything else
// happens behind the queue.
func (s *Session) capture(ctx context.Context, sv *saver.Saver) error {
	buffer := episode.NewBuffer(s.params.Schema, s.plan.StartIndex, s.params.Task)
	framePeriod := time.Duration(float64(time.Second) / s.params.FPS)

	for slot := int64(0); slot < s.plan.Remaining; slot++ {
		violations := 0
	episodeLoop:
		for {
			for i := 0; i < s.params.FramesPerEpisode; i++ {
				frame, err := s.params.Source.Next(ctx)
				if err != nil {
					return fmt.Errorf("capture frame: %w", err)
				}
				frame.Timestamp = time.Duration(i) * framePeriod
				if err := buffer.Append(frame); err != nil {
					if errors.Is(err, schema.ErrViolation) {
						violations++
						s.logger.Warn("frame rejected; discarding episode and retrying slot",
							logging.Int64(logging.FieldEpisodeIndex, buffer.Index()),
							logging.Error(err),
						)
						buffer.Discard()
						if violations >= maxConsecutiveViolations {
							return fmt.Errorf("capture aborted after %d consecutive schema violations: %w", violations, err)
						}
						continue episodeLoop
					}
					return err
				}
			}
			break
		}

		snap, err := buffer.Seal()
		if err != nil {
			return err
		}
		if err := sv.Enqueue(ctx, snap); err != nil {
			return fmt.Errorf("enqueue episode %d: %w", snap.Index, err)
		}
		s.logger.Debug("episode sealed",
			logging.Int64(logging.FieldEpisodeIndex, snap.Index),
			logging.Int(logging.FieldFrameCount, snap.Length()),
		)
	}
	return nil
}
