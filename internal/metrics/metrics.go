package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	FramesAppended         prometheus.Counter
	AppendFailures         prometheus.Counter
	SummaryEntriesAppended prometheus.Counter
	ActiveSessions         prometheus.Gauge
	EntriesRead            prometheus.Counter
	MalformedEntries       prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	ResultsPublished       prometheus.Counter
	TranscribeDuration     prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		Registry: registry,
		FramesAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_capture_frames_appended_total",
			Help: "Live PCM frames appended to the audio stream.",
		}),
		AppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_capture_append_failures_total",
			Help: "Failed appends to the audio stream.",
		}),
		SummaryEntriesAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_capture_summary_entries_total",
			Help: "Consolidated per-speaker entries appended at session end.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_capture_active_sessions",
			Help: "Voice capture sessions currently running.",
		}),
		EntriesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_worker_entries_read_total",
			Help: "Stream entries consumed by the transcription worker.",
		}),
		MalformedEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_worker_malformed_entries_total",
			Help: "Stream entries skipped because required fields were missing or invalid.",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_worker_transcription_failures_total",
			Help: "Entries skipped because every transcription attempt failed.",
		}),
		ResultsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_worker_results_published_total",
			Help: "Transcription results delivered to all sinks.",
		}),
		TranscribeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_worker_transcribe_duration_seconds",
			Help:    "Wall time of successful transcription calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
