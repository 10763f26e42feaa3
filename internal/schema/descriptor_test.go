package schema_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"traject/internal/schema"
)

const sampleDescriptor = `
source = "synthetic"

[features."observation.state"]
dtype = "float32"
shape = [3]
names = ["x", "y", "z"]

[features.action]
dtype = "float32"
shape = [3]
`

func writeDescriptor(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func TestLoadDescriptor(t *testing.T) {
	desc, err := schema.LoadDescriptor(writeDescriptor(t, sampleDescriptor))
	if err != nil {
		t.Fatalf("LoadDescriptor returned error: %v", err)
	}
	if desc.Source != "synthetic" {
		t.Fatalf("unexpected source: %q", desc.Source)
	}
	sch := desc.Schema()
	if len(sch) != 2 {
		t.Fatalf("expected 2 features, got %d", len(sch))
	}
	state := sch["observation.state"]
	if state.DType != schema.Float32 || state.FlatLen() != 3 {
		t.Fatalf("unexpected state feature: %+v", state)
	}
}

func TestLoadDescriptorRejectsMissingSource(t *testing.T) {
	_, err := schema.LoadDescriptor(writeDescriptor(t, `
[features.action]
dtype = "float32"
shape = [3]
`))
	if err == nil || !strings.Contains(err.Error(), "source is required") {
		t.Fatalf("expected missing-source error, got %v", err)
	}
}

func TestLoadDescriptorRejectsInvalidSchema(t *testing.T) {
	_, err := schema.LoadDescriptor(writeDescriptor(t, `
source = "synthetic"

[features.action]
dtype = "complex128"
shape = [3]
`))
	if err == nil || !strings.Contains(err.Error(), "unsupported dtype") {
		t.Fatalf("expected dtype error, got %v", err)
	}
}

func TestLoadDescriptorMissingFile(t *testing.T) {
	if _, err := schema.LoadDescriptor(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing descriptor file")
	}
}
