// Package metrics declares the Prometheus collectors for the persistence
// pipeline, exposed by the status API's /metrics endpoint while recording.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors for the capture/saver pipeline.
var (
	EpisodesSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traject_episodes_saved_total",
		Help: "Cumulative number of episodes durably persisted.",
	})
	EpisodesFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traject_episodes_failed_total",
		Help: "Cumulative number of episodes whose save unit failed.",
	})
	FramesWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traject_frames_written_total",
		Help: "Cumulative number of frames written to data units.",
	})
	SaveDurationTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traject_save_duration_seconds_total",
		Help: "Cumulative number of seconds spent in episode save units.",
	})
	EnqueueBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traject_enqueue_blocked_total",
		Help: "Cumulative number of enqueues that blocked on a full queue.",
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "traject_queue_depth",
		Help: "Sealed episodes currently waiting in the persistence queue.",
	})
)

// PipelineCollectors returns every collector the recording pipeline updates.
func PipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		EpisodesSavedTotal,
		EpisodesFailedTotal,
		FramesWrittenTotal,
		SaveDurationTotal,
		EnqueueBlockedTotal,
		QueueDepth,
	}
}
