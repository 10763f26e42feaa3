package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"

	"traject/internal/schema"
)

// Store is the durable metadata ledger of one dataset. It is single-writer:
// after a session starts, only the saver goroutine calls the mutating
// methods, which is what lets counters advance without locks.
type Store struct {
	layout Layout
	info   Info
	tasks  map[string]int64
	lock   *flock.Flock
}

// Create initializes a new dataset at root: zero counters, the feature
// schema, and frame rate persisted to meta/info.json, plus empty ledgers.
// It fails with ErrExists when the location already holds a dataset.
func Create(root string, fps float64, sch schema.Schema, chunkSize int) (*Store, error) {
	if err := sch.Validate(); err != nil {
		return nil, err
	}
	layout := Layout{Root: root, ChunkSize: chunkSize}
	if _, err := os.Stat(layout.InfoPath()); err == nil {
		return nil, fmt.Errorf("%w at %s", ErrExists, root)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat dataset metadata: %w", err)
	}
	if err := os.MkdirAll(layout.MetaDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create dataset directories: %w", err)
	}

	store := &Store{
		layout: layout,
		info: Info{
			FormatVersion: FormatVersion,
			FPS:           fps,
			ChunkSize:     chunkSize,
			Features:      sch,
		},
		tasks: make(map[string]int64),
	}
	if err := store.acquireLock(); err != nil {
		return nil, err
	}
	if err := store.writeInfo(); err != nil {
		store.releaseLock()
		return nil, err
	}
	for _, path := range []string{layout.EpisodesPath(), layout.StatsPath(), layout.TasksPath()} {
		if err := touch(path); err != nil {
			store.releaseLock()
			return nil, err
		}
	}
	return store, nil
}

// Resume attaches to an existing dataset. The requested frame rate must match
// exactly (ErrConfigMismatch) and the feature schema must be deep-equal
// (ErrSchemaMismatch); a missing dataset yields ErrNotFound and a readable
// but inconsistent ledger yields ErrCorrupt. On success the existing
// counters, statistics, and task vocabulary are adopted for appending.
func Resume(root string, fps float64, sch schema.Schema) (*Store, error) {
	store, err := load(root)
	if err != nil {
		return nil, err
	}
	if store.info.FPS != fps {
		store.releaseLock()
		return nil, fmt.Errorf("%w: requested fps %v, dataset records %v", ErrConfigMismatch, fps, store.info.FPS)
	}
	if diff := store.info.Features.Diff(sch); diff != "" {
		store.releaseLock()
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, diff)
	}
	return store, nil
}

// Load opens an existing dataset without compatibility checks. Read paths
// (the show command) use it; recording sessions must go through Resume.
func Load(root string) (*Store, error) {
	return load(root)
}

func load(root string) (*Store, error) {
	layout := Layout{Root: root}
	raw, err := os.ReadFile(layout.InfoPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("read dataset metadata: %w", err)
	}

	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, infoFileName, err)
	}
	if info.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: format version %q, this build writes %q", ErrConfigMismatch, info.FormatVersion, FormatVersion)
	}
	if err := info.Features.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	layout.ChunkSize = info.ChunkSize

	store := &Store{layout: layout, info: info}
	if err := store.acquireLock(); err != nil {
		return nil, err
	}
	if err := store.loadTasks(); err != nil {
		store.releaseLock()
		return nil, err
	}
	if err := store.verifyLedger(); err != nil {
		store.releaseLock()
		return nil, err
	}
	return store, nil
}

// Close releases the dataset lock. It does not flush anything: every
// mutating method persists durably before returning.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.releaseLock()
	return nil
}

// Info returns a copy of the current dataset metadata.
func (s *Store) Info() Info { return s.info }

// Layout exposes the path arithmetic for the dataset's data and media files.
func (s *Store) Layout() Layout { return s.layout }

// TotalEpisodes returns the count of durably acknowledged episodes.
func (s *Store) TotalEpisodes() int64 { return s.info.TotalEpisodes }

// TaskCount returns the size of the task vocabulary.
func (s *Store) TaskCount() int { return len(s.tasks) }

// EnsureTask returns the vocabulary id for a task label, appending a new
// entry when the label is unseen. Labels are NFC-normalized so visually
// identical strings map to one id.
func (s *Store) EnsureTask(task string) (int64, error) {
	normalized := norm.NFC.String(strings.TrimSpace(task))
	if id, ok := s.tasks[normalized]; ok {
		return id, nil
	}
	id := int64(len(s.tasks))
	record := TaskRecord{TaskIndex: id, Task: normalized}
	if err := appendJSONLine(s.layout.TasksPath(), record); err != nil {
		return 0, fmt.Errorf("append task vocabulary: %w", err)
	}
	if s.tasks == nil {
		s.tasks = make(map[string]int64)
	}
	s.tasks[normalized] = id
	return id, nil
}

// CommitEpisode appends the episode's index record and statistics to the
// ledgers and advances the aggregate counters. Callers invoke it only after
// the episode's data unit and media have been written; the counters therefore
// count durably acknowledged episodes, never merely enqueued ones.
func (s *Store) CommitEpisode(record EpisodeRecord, stats StatsRecord) error {
	if record.EpisodeIndex != s.info.TotalEpisodes {
		return fmt.Errorf("commit episode %d out of order, next index is %d", record.EpisodeIndex, s.info.TotalEpisodes)
	}
	if err := appendJSONLine(s.layout.EpisodesPath(), record); err != nil {
		return fmt.Errorf("append episode ledger: %w", err)
	}
	if err := appendJSONLine(s.layout.StatsPath(), stats); err != nil {
		return fmt.Errorf("append statistics ledger: %w", err)
	}

	s.info.TotalEpisodes++
	s.info.TotalFrames += record.Length
	s.info.TotalVideos += int64(len(s.info.Features.VideoNames()))
	if err := s.writeInfo(); err != nil {
		return err
	}
	return nil
}

// Episodes reads the full episode index ledger.
func (s *Store) Episodes() ([]EpisodeRecord, error) {
	var records []EpisodeRecord
	err := readJSONLines(s.layout.EpisodesPath(), func(line []byte) error {
		var rec EpisodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrCorrupt, episodesFile, err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Tasks returns the task vocabulary ordered by id.
func (s *Store) Tasks() []TaskRecord {
	records := make([]TaskRecord, len(s.tasks))
	for task, id := range s.tasks {
		records[id] = TaskRecord{TaskIndex: id, Task: task}
	}
	return records
}

func (s *Store) loadTasks() error {
	s.tasks = make(map[string]int64)
	return readJSONLines(s.layout.TasksPath(), func(line []byte) error {
		var rec TaskRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrCorrupt, tasksFile, err)
		}
		if rec.TaskIndex != int64(len(s.tasks)) {
			return fmt.Errorf("%w: task vocabulary ids not contiguous at %d", ErrCorrupt, rec.TaskIndex)
		}
		s.tasks[rec.Task] = rec.TaskIndex
		return nil
	})
}

// verifyLedger cross-checks the counters against the episode ledger. A
// mismatch means a previous process died mid-save or the ledger was edited;
// either way the dataset needs manual attention, so fail fast instead of
// silently truncating history.
func (s *Store) verifyLedger() error {
	var count int64
	var lastIndex int64 = -1
	err := readJSONLines(s.layout.EpisodesPath(), func(line []byte) error {
		var rec EpisodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrCorrupt, episodesFile, err)
		}
		if rec.EpisodeIndex != lastIndex+1 {
			return fmt.Errorf("%w: episode indices not gapless at %d", ErrCorrupt, rec.EpisodeIndex)
		}
		lastIndex = rec.EpisodeIndex
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if count != s.info.TotalEpisodes {
		return fmt.Errorf("%w: info.json records %d episodes, ledger holds %d", ErrCorrupt, s.info.TotalEpisodes, count)
	}
	return nil
}

// writeInfo persists info.json atomically in RFC 8785 canonical form, so two
// datasets with identical state are byte-identical on disk.
func (s *Store) writeInfo() error {
	raw, err := json.Marshal(s.info)
	if err != nil {
		return fmt.Errorf("marshal dataset metadata: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("canonicalize dataset metadata: %w", err)
	}
	path := s.layout.InfoPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, canonical, 0o644); err != nil {
		return fmt.Errorf("write dataset metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace dataset metadata: %w", err)
	}
	return nil
}

func (s *Store) acquireLock() error {
	lock := flock.New(s.layout.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire dataset lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, s.layout.LockPath())
	}
	s.lock = lock
	return nil
}

func (s *Store) releaseLock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}

func touch(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("create ledger %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}

func appendJSONLine(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(append(raw, '\n')); err != nil {
		return err
	}
	return file.Sync()
}

func readJSONLines(path string, fn func(line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: ledger %s missing", ErrCorrupt, filepath.Base(path))
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}
