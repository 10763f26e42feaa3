package encoder

import "context"

// Batcher groups consecutive episodes' media jobs so the underlying encoder
// runs once per batch instead of once per episode. Only the encode step is
// batched; the saver still writes per-episode metadata individually and in
// index order after each flush.
type Batcher struct {
	enc  Encoder
	size int
	jobs []Job
}

// NewBatcher wraps an encoder with batch accumulation. A size of 1 makes
// every Add flush immediately, which disables batching.
func NewBatcher(enc Encoder, size int) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{enc: enc, size: size}
}

// Add appends a job and encodes the accumulated batch when it reaches the
// configured size. It reports whether a flush happened, so the caller knows
// its pending episodes are now durable on the media side.
func (b *Batcher) Add(ctx context.Context, job Job) (bool, error) {
	b.jobs = append(b.jobs, job)
	if len(b.jobs) < b.size {
		return false, nil
	}
	return true, b.Flush(ctx)
}

// Flush encodes whatever is accumulated, including a partial batch. The
// drain barrier calls this so a process shutdown never strands episodes that
// were sealed but still waiting for batch-mates.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.jobs) == 0 {
		return nil
	}
	jobs := b.jobs
	b.jobs = nil
	return b.enc.EncodeBatch(ctx, jobs)
}

// Pending returns the number of jobs awaiting a flush.
func (b *Batcher) Pending() int { return len(b.jobs) }
