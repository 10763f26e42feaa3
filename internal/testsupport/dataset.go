package testsupport

import (
	"testing"

	"traject/internal/dataset"
	"traject/internal/episode"
	"traject/internal/schema"
)

// StateSchema returns a minimal numeric-only schema used across tests.
func StateSchema() schema.Schema {
	return schema.Schema{
		"observation.state": {DType: schema.Float32, Shape: []int{3}, Names: []string{"x", "y", "z"}},
		"action":            {DType: schema.Float32, Shape: []int{3}},
	}
}

// MustCreateDataset creates a dataset and registers cleanup of its lock.
func MustCreateDataset(t testing.TB, root string, fps float64, sch schema.Schema) *dataset.Store {
	t.Helper()

	store, err := dataset.Create(root, fps, sch, 1000)
	if err != nil {
		t.Fatalf("dataset.Create: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Frame builds a schema-conforming frame for StateSchema with every element
// set to the given fill value.
func Frame(fill float64) episode.Frame {
	return episode.Frame{
		Values: map[string]schema.Value{
			"observation.state": {Floats: []float64{fill, fill + 1, fill + 2}},
			"action":            {Floats: []float64{fill, fill, fill}},
		},
	}
}

// Snapshot builds a sealed snapshot with the given index and frame count.
func Snapshot(t testing.TB, index int64, frames int) *episode.Snapshot {
	t.Helper()

	buffer := episode.NewBuffer(StateSchema(), index, "test task")
	for i := 0; i < frames; i++ {
		if err := buffer.Append(Frame(float64(i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	snap, err := buffer.Seal()
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return snap
}
