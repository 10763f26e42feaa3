package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
)

// EpisodeSummary is the single metadata row stored in a data unit.
type EpisodeSummary struct {
	EpisodeIndex int64
	TaskIndex    int64
	Task         string
	Length       int64
}

// DecodedFrame is one frame read back from a data unit.
type DecodedFrame struct {
	FrameIndex int64
	Timestamp  time.Duration
	Values     map[string][]float64
}

// ReadEpisode loads a data unit back into memory. The show command and the
// tests use it; the recording path never reads data units.
func ReadEpisode(ctx context.Context, path string) (EpisodeSummary, []DecodedFrame, error) {
	db, err := openDataUnit(path)
	if err != nil {
		return EpisodeSummary{}, nil, err
	}
	defer db.Close()

	var summary EpisodeSummary
	row := db.QueryRowContext(ctx, `SELECT episode_index, task_index, task, length FROM episode LIMIT 1`)
	if err := row.Scan(&summary.EpisodeIndex, &summary.TaskIndex, &summary.Task, &summary.Length); err != nil {
		return EpisodeSummary{}, nil, fmt.Errorf("read episode row: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT frame_index, timestamp_us, compressed, payload FROM frames ORDER BY frame_index`)
	if err != nil {
		return EpisodeSummary{}, nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []DecodedFrame
	for rows.Next() {
		var (
			frameIndex  int64
			timestampUS int64
			compressed  int
			payload     []byte
		)
		if err := rows.Scan(&frameIndex, &timestampUS, &compressed, &payload); err != nil {
			return EpisodeSummary{}, nil, fmt.Errorf("scan frame: %w", err)
		}
		if compressed != 0 {
			payload, err = snappy.Decode(nil, payload)
			if err != nil {
				return EpisodeSummary{}, nil, fmt.Errorf("decompress frame %d: %w", frameIndex, err)
			}
		}
		var values map[string][]float64
		if err := json.Unmarshal(payload, &values); err != nil {
			return EpisodeSummary{}, nil, fmt.Errorf("decode frame %d: %w", frameIndex, err)
		}
		frames = append(frames, DecodedFrame{
			FrameIndex: frameIndex,
			Timestamp:  time.Duration(timestampUS) * time.Microsecond,
			Values:     values,
		})
	}
	if err := rows.Err(); err != nil {
		return EpisodeSummary{}, nil, err
	}
	return summary, frames, nil
}
