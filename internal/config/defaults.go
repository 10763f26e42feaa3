package config

const (
	defaultDataRoot        = "~/.local/share/traject/datasets"
	defaultLogDir          = "~/.local/share/traject/logs"
	defaultAPIBind         = "127.0.0.1:7519"
	defaultFPS             = 30.0
	defaultEpisodeSeconds  = 60.0
	defaultQueueCapacity   = 8
	defaultEncodeBatchSize = 1
	defaultChunkSize       = 1000
	defaultMinFreeGiB      = 5
	defaultVideoCodec      = "libx264"
	defaultVideoPixelFmt   = "yuv420p"
	defaultFFmpegBinary    = "ffmpeg"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot: defaultDataRoot,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Recording: Recording{
			FPS:             defaultFPS,
			EpisodeSeconds:  defaultEpisodeSeconds,
			QueueCapacity:   defaultQueueCapacity,
			EncodeBatchSize: defaultEncodeBatchSize,
			ChunkSize:       defaultChunkSize,
			MinFreeGiB:      defaultMinFreeGiB,
		},
		Storage: Storage{
			VideoCodec:     defaultVideoCodec,
			VideoPixelFmt:  defaultVideoPixelFmt,
			FFmpegBinary:   defaultFFmpegBinary,
			CompressFrames: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
