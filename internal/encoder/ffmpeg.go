package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegEncoder encodes image payload streams into video segments by piping
// frames through an ffmpeg subprocess, one invocation per stream. Grouping
// several episodes into one EncodeBatch call amortizes process startup and
// keeps the heavy codec work off the per-episode critical path.
type FFmpegEncoder struct {
	Binary   string
	Codec    string
	PixelFmt string
}

// NewFFmpegEncoder constructs an encoder with the configured codec settings.
func NewFFmpegEncoder(binary, codec, pixelFmt string) *FFmpegEncoder {
	return &FFmpegEncoder{Binary: binary, Codec: codec, PixelFmt: pixelFmt}
}

// EncodeBatch encodes every stream of every job. Jobs without streams are
// skipped. The first failure aborts the batch; the saver treats the whole
// batch as failed and keeps counters untouched.
func (e *FFmpegEncoder) EncodeBatch(ctx context.Context, jobs []Job) error {
	for _, job := range jobs {
		for _, stream := range job.Streams {
			if err := e.encodeStream(ctx, job.FPS, stream); err != nil {
				return fmt.Errorf("episode %d feature %s: %w", job.EpisodeIndex, stream.Feature, err)
			}
		}
	}
	return nil
}

func (e *FFmpegEncoder) encodeStream(ctx context.Context, fps float64, stream Stream) error {
	if len(stream.Frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if err := os.MkdirAll(filepath.Dir(stream.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "image2pipe",
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-c:v", e.Codec,
		"-pix_fmt", e.PixelFmt,
		stream.OutputPath,
	}

	var input bytes.Buffer
	for _, frame := range stream.Frames {
		input.Write(frame)
	}

	cmd := exec.CommandContext(ctx, e.Binary, args...) //nolint:gosec
	cmd.Stdin = &input
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(stream.OutputPath)
		return fmt.Errorf("ffmpeg encode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
