package testsupport

import (
	"context"
	"sync"

	"traject/internal/encoder"
)

// StubEncoder records the batches it was asked to encode and can be made to
// fail or stall, standing in for ffmpeg in pipeline tests.
type StubEncoder struct {
	mu      sync.Mutex
	batches [][]int64
	Err     error
	Delay   func()
}

// EncodeBatch implements encoder.Encoder.
func (s *StubEncoder) EncodeBatch(ctx context.Context, jobs []encoder.Job) error {
	if s.Delay != nil {
		s.Delay()
	}
	indices := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		indices = append(indices, job.EpisodeIndex)
	}
	s.mu.Lock()
	s.batches = append(s.batches, indices)
	s.mu.Unlock()
	return s.Err
}

// Batches returns the episode index groups encoded so far.
func (s *StubEncoder) Batches() [][]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int64, len(s.batches))
	copy(out, s.batches)
	return out
}
