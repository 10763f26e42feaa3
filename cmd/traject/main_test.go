package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"traject/internal/dataset"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "data_root")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "dev")
}

func TestRecordShowAndResume(t *testing.T) {
	env := setupCLITestEnv(t)
	descriptor := writeFeatureDescriptor(t)

	out, _, err := runCLI(t, []string{
		"record",
		"--dataset", "pick-cube",
		"--features", descriptor,
		"--task", "pick up the cube",
		"--num-episodes", "3",
	}, env.configPath)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	requireContains(t, out, "pick-cube")

	store, err := dataset.Load(filepath.Join(env.dataRoot, "pick-cube"))
	if err != nil {
		t.Fatalf("open recorded dataset: %v", err)
	}
	if store.TotalEpisodes() != 3 {
		t.Fatalf("TotalEpisodes = %d, want 3", store.TotalEpisodes())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out, _, err = runCLI(t, []string{"show", "pick-cube", "--episodes"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "pick up the cube")

	// Resuming toward a higher cumulative target records only the difference.
	out, _, err = runCLI(t, []string{
		"record",
		"--dataset", "pick-cube",
		"--features", descriptor,
		"--task", "pick up the cube",
		"--num-episodes", "5",
		"--resume",
	}, env.configPath)
	if err != nil {
		t.Fatalf("record --resume: %v", err)
	}
	requireContains(t, out, "5")

	// A met target is a successful no-op.
	out, _, err = runCLI(t, []string{
		"record",
		"--dataset", "pick-cube",
		"--features", descriptor,
		"--task", "pick up the cube",
		"--num-episodes", "5",
		"--resume",
	}, env.configPath)
	if err != nil {
		t.Fatalf("record with met target: %v", err)
	}
	requireContains(t, out, "0")
}

func TestRecordRejectsMissingDataset(t *testing.T) {
	env := setupCLITestEnv(t)
	descriptor := writeFeatureDescriptor(t)

	_, _, err := runCLI(t, []string{
		"record",
		"--dataset", "absent",
		"--features", descriptor,
		"--task", "anything",
		"--num-episodes", "2",
		"--resume",
	}, env.configPath)
	if err == nil {
		t.Fatal("expected resume of a missing dataset to fail")
	}
	requireContains(t, err.Error(), "not found")
}

func TestShowMissingDataset(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"show", "absent"}, env.configPath)
	if err == nil {
		t.Fatal("expected show of a missing dataset to fail")
	}
}
