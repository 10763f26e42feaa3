package dataset

import (
	"fmt"
	"path/filepath"
)

const (
	metaDirName   = "meta"
	dataDirName   = "data"
	videosDirName = "videos"

	infoFileName  = "info.json"
	episodesFile  = "episodes.jsonl"
	statsFile     = "episodes_stats.jsonl"
	tasksFile     = "tasks.jsonl"
	lockFileName  = ".traject.lock"
	dataUnitExt   = ".db"
	mediaFileExt  = ".mp4"
)

// Layout computes the on-disk paths of a dataset rooted at a directory.
// Episodes are grouped into fixed-size chunk directories so a single
// directory never accumulates an unbounded number of files.
type Layout struct {
	Root      string
	ChunkSize int
}

func (l Layout) InfoPath() string     { return filepath.Join(l.Root, metaDirName, infoFileName) }
func (l Layout) EpisodesPath() string { return filepath.Join(l.Root, metaDirName, episodesFile) }
func (l Layout) StatsPath() string    { return filepath.Join(l.Root, metaDirName, statsFile) }
func (l Layout) TasksPath() string    { return filepath.Join(l.Root, metaDirName, tasksFile) }
func (l Layout) LockPath() string     { return filepath.Join(l.Root, lockFileName) }
func (l Layout) MetaDir() string      { return filepath.Join(l.Root, metaDirName) }

// Chunk returns the chunk number an episode index falls into.
func (l Layout) Chunk(episodeIndex int64) int64 {
	size := int64(l.ChunkSize)
	if size <= 0 {
		size = 1
	}
	return episodeIndex / size
}

func (l Layout) chunkSegment(episodeIndex int64) string {
	return fmt.Sprintf("chunk-%03d", l.Chunk(episodeIndex))
}

func (l Layout) episodeSegment(episodeIndex int64) string {
	return fmt.Sprintf("episode_%06d", episodeIndex)
}

// DataUnitPath returns the path of an episode's frame table.
func (l Layout) DataUnitPath(episodeIndex int64) string {
	return filepath.Join(l.Root, dataDirName, l.chunkSegment(episodeIndex), l.episodeSegment(episodeIndex)+dataUnitExt)
}

// MediaPath returns the path of one video feature's encoded segment for an episode.
func (l Layout) MediaPath(episodeIndex int64, feature string) string {
	return filepath.Join(l.Root, videosDirName, l.chunkSegment(episodeIndex), sanitizeFeatureDir(feature), l.episodeSegment(episodeIndex)+mediaFileExt)
}

// Feature names may contain dots ("observation.images.top"); they map to
// directory names unchanged except for path separators.
func sanitizeFeatureDir(feature string) string {
	out := make([]rune, 0, len(feature))
	for _, r := range feature {
		switch r {
		case '/', '\\':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
