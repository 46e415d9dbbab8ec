// Package metrics collects the counters of one extraction run and writes them in
// the Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rosbag2csv"

// Status labels of a finished channel.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Collector holds the metrics of a single recording. Every recording gets its own
// registry so the textfile only describes that recording.
type Collector struct {
	registry *prometheus.Registry

	records         *prometheus.CounterVec
	decodeErrors    *prometheus.CounterVec
	artifacts       *prometheus.CounterVec
	channels        *prometheus.CounterVec
	channelDuration *prometheus.HistogramVec
	countMismatch   *prometheus.GaugeVec
	runDuration     prometheus.Gauge
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,

		records: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Records decoded per channel",
			},
			[]string{"channel", "kind"},
		),

		decodeErrors: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_errors_total",
				Help:      "Channels that failed, by error type",
			},
			[]string{"channel", "error_type"},
		),

		artifacts: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_total",
				Help:      "Files written per channel",
			},
			[]string{"channel", "kind"},
		),

		channels: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channels_total",
				Help:      "Channels processed, by status",
			},
			[]string{"status"},
		),

		channelDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "channel_duration_seconds",
				Help:      "Time spent extracting a channel",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"kind"},
		),

		countMismatch: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "message_count_mismatch",
				Help:      "Decoded records minus the count declared in the manifest",
			},
			[]string{"channel"},
		),

		runDuration: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "recording_duration_seconds",
				Help:      "Time spent extracting the recording",
			},
		),
	}
}

// ChannelDone records the outcome of one channel.
func (c *Collector) ChannelDone(channel, kind string, records, artifacts int, elapsed time.Duration) {
	c.records.WithLabelValues(channel, kind).Add(float64(records))
	c.artifacts.WithLabelValues(channel, kind).Add(float64(artifacts))
	c.channels.WithLabelValues(StatusOK).Inc()
	c.channelDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ChannelFailed records a channel that was abandoned.
func (c *Collector) ChannelFailed(channel, kind, errorType string, records int, elapsed time.Duration) {
	c.records.WithLabelValues(channel, kind).Add(float64(records))
	c.decodeErrors.WithLabelValues(channel, errorType).Inc()
	c.channels.WithLabelValues(StatusFailed).Inc()
	c.channelDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// CountMismatch records a difference between decoded and declared message counts.
func (c *Collector) CountMismatch(channel string, diff int64) {
	c.countMismatch.WithLabelValues(channel).Set(float64(diff))
}

func (c *Collector) RecordingDone(elapsed time.Duration) {
	c.runDuration.Set(elapsed.Seconds())
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteFile writes every metric to path in the node exporter textfile format.
func (c *Collector) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
