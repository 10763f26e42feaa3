package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecording()
	c.normalizeStorage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		c.Paths.DataRoot = defaultDataRoot
	}
	if c.Paths.DataRoot, err = expandPath(c.Paths.DataRoot); err != nil {
		return fmt.Errorf("paths.data_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeRecording() {
	if c.Recording.FPS <= 0 {
		c.Recording.FPS = defaultFPS
	}
	if c.Recording.EpisodeSeconds <= 0 {
		c.Recording.EpisodeSeconds = defaultEpisodeSeconds
	}
	if c.Recording.QueueCapacity <= 0 {
		c.Recording.QueueCapacity = defaultQueueCapacity
	}
	if c.Recording.EncodeBatchSize <= 0 {
		c.Recording.EncodeBatchSize = defaultEncodeBatchSize
	}
	if c.Recording.ChunkSize <= 0 {
		c.Recording.ChunkSize = defaultChunkSize
	}
	if c.Recording.MinFreeGiB < 0 {
		c.Recording.MinFreeGiB = 0
	}
}

func (c *Config) normalizeStorage() {
	if strings.TrimSpace(c.Storage.VideoCodec) == "" {
		c.Storage.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Storage.VideoPixelFmt) == "" {
		c.Storage.VideoPixelFmt = defaultVideoPixelFmt
	}
	if strings.TrimSpace(c.Storage.FFmpegBinary) == "" {
		c.Storage.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
