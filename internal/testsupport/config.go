package testsupport

import (
	"path/filepath"
	"testing"

	"traject/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataRoot = filepath.Join(base, "datasets")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = ""
	cfg.Recording.MinFreeGiB = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithQueueCapacity overrides the persistence queue capacity.
func WithQueueCapacity(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Recording.QueueCapacity = n
	}
}

// WithBatchSize overrides the encode batch size.
func WithBatchSize(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Recording.EncodeBatchSize = n
	}
}
