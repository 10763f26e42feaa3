package encoder

import (
	"context"

	"traject/internal/episode"
	"traject/internal/schema"
)

// Stream is one video feature's media for a single episode: the encoded
// image payloads in capture order and the segment path to produce.
type Stream struct {
	Feature    string
	OutputPath string
	Frames     [][]byte
}

// Job describes one episode's media encode work.
type Job struct {
	EpisodeIndex int64
	FPS          float64
	Streams      []Stream
}

// Encoder turns accumulated image payloads into encoded media segments.
// Implementations must tolerate jobs with no streams (datasets without video
// features) by skipping them.
type Encoder interface {
	EncodeBatch(ctx context.Context, jobs []Job) error
}

// BuildJob extracts the media work for one sealed episode. The returned job
// references the snapshot's image payloads directly; the snapshot is immutable
// and owned by the saver at this point, so no copy is needed.
func BuildJob(snap *episode.Snapshot, sch schema.Schema, fps float64, mediaPath func(episodeIndex int64, feature string) string) Job {
	job := Job{EpisodeIndex: snap.Index, FPS: fps}
	for _, feature := range sch.VideoNames() {
		stream := Stream{
			Feature:    feature,
			OutputPath: mediaPath(snap.Index, feature),
			Frames:     make([][]byte, 0, len(snap.Frames)),
		}
		for _, frame := range snap.Frames {
			stream.Frames = append(stream.Frames, frame.Values[feature].Image)
		}
		job.Streams = append(job.Streams, stream)
	}
	return job
}
