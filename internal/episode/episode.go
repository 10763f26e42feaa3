package episode

import (
	"errors"
	"fmt"
	"time"

	"traject/internal/schema"
)

// Frame is one timestamped capture tick. Timestamp is the offset from the
// start of the episode at the configured frame rate.
type Frame struct {
	Timestamp time.Duration
	Values    map[string]schema.Value
}

// Snapshot is an immutable, fully owned copy of a sealed episode. Nothing in
// a Snapshot aliases the live buffer, so the saver may read it without
// synchronization while the capture goroutine fills the next episode.
type Snapshot struct {
	Index     int64
	Task      string
	StartedAt time.Time
	EndedAt   time.Time
	Frames    []Frame
}

// Length returns the number of frames in the snapshot.
func (s *Snapshot) Length() int { return len(s.Frames) }

// Buffer accumulates one episode's frames. It is owned exclusively by the
// capture goroutine; only Seal hands data to anyone else.
type Buffer struct {
	schema  schema.Schema
	index   int64
	task    string
	started time.Time
	frames  []Frame
}

// NewBuffer returns an empty buffer for the episode at the given index.
func NewBuffer(sch schema.Schema, index int64, task string) *Buffer {
	return &Buffer{schema: sch, index: index, task: task, started: time.Now().UTC()}
}

// Index returns the dataset-wide index the buffer is accumulating.
func (b *Buffer) Index() int64 { return b.index }

// Len returns the number of frames appended so far.
func (b *Buffer) Len() int { return len(b.frames) }

// Append validates a frame against the schema and copies its payloads into
// buffer-owned memory, so a source that reuses its frame buffers cannot race
// a later seal.
func (b *Buffer) Append(frame Frame) error {
	if err := b.schema.ValidateFrame(frame.Values); err != nil {
		return fmt.Errorf("episode %d frame %d: %w", b.index, len(b.frames), err)
	}
	owned := Frame{Timestamp: frame.Timestamp, Values: make(map[string]schema.Value, len(frame.Values))}
	for name, value := range frame.Values {
		owned.Values[name] = value.Clone()
	}
	b.frames = append(b.frames, owned)
	return nil
}

// Seal converts the accumulated frames into an immutable Snapshot and resets
// the buffer for the next episode index. The frame slice moves into the
// snapshot and the buffer starts a fresh one, so the two never share memory.
// Seal never touches the persistence queue or storage.
func (b *Buffer) Seal() (*Snapshot, error) {
	if len(b.frames) == 0 {
		return nil, errors.New("seal: episode buffer is empty")
	}
	snap := &Snapshot{
		Index:     b.index,
		Task:      b.task,
		StartedAt: b.started,
		EndedAt:   time.Now().UTC(),
		Frames:    b.frames,
	}
	b.index++
	b.started = time.Now().UTC()
	b.frames = nil
	return snap, nil
}

// Discard drops the accumulated frames without advancing the index. Used when
// a capture error poisons the in-progress episode.
func (b *Buffer) Discard() {
	b.frames = nil
	b.started = time.Now().UTC()
}
