package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataRoot == "" {
		return errors.New("paths.data_root must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRecording() error {
	if c.Recording.FPS <= 0 || c.Recording.FPS > 240 {
		return fmt.Errorf("recording.fps must be in (0, 240], got %v", c.Recording.FPS)
	}
	if c.Recording.QueueCapacity < 1 {
		return errors.New("recording.queue_capacity must be at least 1")
	}
	if c.Recording.EncodeBatchSize < 1 {
		return errors.New("recording.encode_batch_size must be at least 1")
	}
	if c.Recording.ChunkSize < 1 {
		return errors.New("recording.chunk_size must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
