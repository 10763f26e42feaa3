package dataset

import (
	"time"

	"traject/internal/schema"
)

// FormatVersion identifies the on-disk dataset layout. Resume refuses
// datasets written by an incompatible layout.
const FormatVersion = "v1.0"

// Info is the dataset-wide metadata record persisted at meta/info.json.
// The three aggregate counters are monotonically non-decreasing and advance
// only after an episode's save unit fully succeeds.
type Info struct {
	FormatVersion string        `json:"format_version"`
	FPS           float64       `json:"fps"`
	ChunkSize     int           `json:"chunk_size"`
	TotalEpisodes int64         `json:"total_episodes"`
	TotalFrames   int64         `json:"total_frames"`
	TotalVideos   int64         `json:"total_videos"`
	Features      schema.Schema `json:"features"`
}

// EpisodeRecord is one line of the append-only episode index ledger at
// meta/episodes.jsonl.
type EpisodeRecord struct {
	EpisodeIndex int64     `json:"episode_index"`
	TaskIndex    int64     `json:"task_index"`
	Task         string    `json:"task"`
	Length       int64     `json:"length"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	SessionID    string    `json:"session_id"`
}

// FeatureStats aggregates one numeric feature over an episode, elementwise
// across the feature's flattened dimensions.
type FeatureStats struct {
	Min   []float64 `json:"min"`
	Max   []float64 `json:"max"`
	Mean  []float64 `json:"mean"`
	Std   []float64 `json:"std"`
	Count int64     `json:"count"`
}

// StatsRecord is one line of the append-only statistics ledger at
// meta/episodes_stats.jsonl.
type StatsRecord struct {
	EpisodeIndex int64                   `json:"episode_index"`
	Stats        map[string]FeatureStats `json:"stats"`
}

// TaskRecord is one line of the append-only task vocabulary at
// meta/tasks.jsonl.
type TaskRecord struct {
	TaskIndex int64  `json:"task_index"`
	Task      string `json:"task"`
}
