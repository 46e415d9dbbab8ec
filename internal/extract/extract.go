// Package extract turns recordings into their artifacts: it resolves every
// channel of a recording against its store, routes each channel to the CSV or
// image sink and reports what happened.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
	"github.com/lherman-cs/go-rosbag2/internal/catalog"
	"github.com/lherman-cs/go-rosbag2/internal/export"
	"github.com/lherman-cs/go-rosbag2/internal/metrics"
	"github.com/lherman-cs/go-rosbag2/internal/recording"
	"github.com/lherman-cs/go-rosbag2/internal/store"
)

type Options struct {
	// ImageDirPerChannel writes every image channel to its own sub directory of
	// image_files.
	ImageDirPerChannel bool
	// Metrics writes metrics.prom next to the summary.
	Metrics bool
}

// Extractor processes one recording at a time.
type Extractor struct {
	decoder export.Decoder
	opts    Options
	logger  *zap.Logger
}

func NewExtractor(decoder export.Decoder, opts Options, logger *zap.Logger) *Extractor {
	return &Extractor{
		decoder: decoder,
		opts:    opts,
		logger:  logger,
	}
}

// Extract writes the artifacts of rec under processedDir/<rec.Name>. A missing
// channel or an unusable store fails the whole recording before anything is
// written. Failures of a single channel are logged, reported in the summary and
// don't stop the other channels.
func (e *Extractor) Extract(ctx context.Context, runID string, rec recording.Recording, processedDir string) (*Summary, error) {
	started := time.Now()
	logger := e.logger.With(zap.String("run_id", runID), zap.String("recording", rec.Name))

	m, storePath, err := rec.Load()
	if err != nil {
		return nil, err
	}

	cat := catalog.Build(m.Topics)
	logger.Info("Processing recording",
		zap.String("store", storePath),
		zap.Int("channels", cat.Len()),
		zap.Int64("declared_messages", int64(m.MessageCount)))

	st, err := store.Open(ctx, storePath, store.Options{
		CompressionMode:   m.CompressionMode,
		CompressionFormat: m.CompressionFormat,
	}, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close record store", zap.Error(err))
		}
	}()

	channels := cat.Channels()
	topicIDs := make([]int64, len(channels))
	for i, ch := range channels {
		topicIDs[i], err = st.ResolveTopicID(ctx, ch.Name)
		if err != nil {
			logger.Error("Manifest and record store disagree", zap.String("channel", ch.Name), zap.Error(err))
			return nil, err
		}
	}

	out, err := recording.PrepareOutput(processedDir, rec.Name)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	router := export.NewRouter(
		e.decoder,
		export.NewCSVSink(out.CSVDir),
		export.NewImageFileSink(out.ImageDir, e.opts.ImageDirPerChannel),
		logger,
	)

	summary := &Summary{
		RunID:     runID,
		Recording: rec.Name,
		StartedAt: started.UTC(),
	}

	for i, ch := range channels {
		chSummary, err := e.extractChannel(ctx, router, collector, ch, st.Topic(topicIDs[i]), logger)
		summary.Channels = append(summary.Channels, chSummary)
		if err != nil {
			return summary, err
		}
	}

	summary.Duration = time.Since(started)
	collector.RecordingDone(summary.Duration)

	if err := summary.WriteFile(out.SummaryPath()); err != nil {
		return summary, err
	}

	if e.opts.Metrics {
		if err := collector.WriteFile(out.MetricsPath()); err != nil {
			return summary, fmt.Errorf("writing metrics: %w", err)
		}
	}

	logger.Info("Finished recording",
		zap.Int("channels", len(summary.Channels)),
		zap.Int("failed", summary.Failed()),
		zap.Duration("elapsed", summary.Duration))
	return summary, nil
}

// extractChannel routes one channel. The returned error is only set when the
// recording can't go on.
func (e *Extractor) extractChannel(ctx context.Context, router *export.Router, collector *metrics.Collector,
	ch catalog.ChannelDescriptor, records export.Records, logger *zap.Logger) (ChannelSummary, error) {
	kind := export.Classify(ch.Name)
	summary := ChannelSummary{
		Name:     ch.Name,
		Type:     ch.Type,
		Kind:     string(kind),
		Declared: ch.MessageCount,
	}
	logger = logger.With(zap.String("channel", ch.Name))

	started := time.Now()
	result, err := router.Route(ctx, ch, records)
	elapsed := time.Since(started)

	summary.Records = result.Records
	summary.Columns = result.Columns
	summary.Artifacts = result.Artifacts

	if err != nil {
		summary.Status = StatusFailed
		summary.Error = err.Error()
		collector.ChannelFailed(ch.Name, string(kind), errorType(err), result.Records, elapsed)

		if isFatal(err) {
			logger.Error("Aborting recording", zap.Error(err))
			return summary, err
		}

		logger.Error("Failed to extract channel", zap.String("type", ch.Type), zap.Error(err))
		return summary, nil
	}

	summary.Status = StatusOK
	collector.ChannelDone(ch.Name, string(kind), result.Records, result.Artifacts, elapsed)

	if diff := int64(result.Records) - ch.MessageCount; diff != 0 {
		summary.Warning = fmt.Sprintf("manifest declares %d messages, store holds %d", ch.MessageCount, result.Records)
		collector.CountMismatch(ch.Name, diff)
		logger.Warn("Message count mismatch",
			zap.Int64("declared", ch.MessageCount),
			zap.Int("records", result.Records))
	}

	logger.Info("Extracted channel",
		zap.String("kind", string(kind)),
		zap.Int("records", result.Records),
		zap.Int("artifacts", result.Artifacts),
		zap.Duration("elapsed", elapsed))
	return summary, nil
}

// isFatal reports whether err ends the whole recording rather than one channel.
func isFatal(err error) bool {
	var accessErr *store.AccessError
	return errors.As(err, &accessErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func errorType(err error) string {
	var (
		unknownErr     *rosbag2.UnknownTypeError
		decodeErr      *rosbag2.DecodeError
		unsupportedErr *export.UnsupportedFormatError
		accessErr      *store.AccessError
	)

	switch {
	case errors.As(err, &unknownErr):
		return "unknown_type"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &unsupportedErr):
		return "unsupported_format"
	case errors.As(err, &accessErr):
		return "store_access"
	default:
		return "write"
	}
}
