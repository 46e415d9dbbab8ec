// Package export routes decoded channels to their artifacts: one table per
// tabular channel and one image per message of an image channel.
package export

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
	"github.com/lherman-cs/go-rosbag2/internal/catalog"
	"github.com/lherman-cs/go-rosbag2/internal/store"
)

const (
	SerializationCDR = "cdr"
	imageMarker      = "image"
)

type ChannelKind string

const (
	KindTabular ChannelKind = "tabular"
	KindImage   ChannelKind = "image"
)

// UnsupportedFormatError is returned for channels not serialized as CDR.
type UnsupportedFormatError struct {
	Channel string
	Format  string
}

func (err *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("channel %s: unsupported serialization format %q", err.Channel, err.Format)
}

// Decoder is the decoding capability the router needs. *rosbag2.Registry
// implements it.
type Decoder interface {
	Decode(typeID string, payload []byte) (rosbag2.Value, error)
	UnmarshallTo(typeID string, payload []byte, v interface{}) error
}

// Records yields the stored messages of one channel in storage order.
type Records interface {
	EachRecord(ctx context.Context, fn func(store.RawRecord) error) error
}

// RecordSlice serves records already held in memory.
type RecordSlice []store.RawRecord

func (records RecordSlice) EachRecord(ctx context.Context, fn func(store.RawRecord) error) error {
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// Result summarizes what Route produced for one channel.
type Result struct {
	Kind      ChannelKind
	Records   int
	Columns   int
	Artifacts int
}

// IsImageChannel reports whether a channel goes down the image path. The decision
// only looks for "image" in the channel name, the declared type is ignored.
func IsImageChannel(name string) bool {
	return strings.Contains(name, imageMarker)
}

// Classify returns the kind of the channel called name.
func Classify(name string) ChannelKind {
	if IsImageChannel(name) {
		return KindImage
	}
	return KindTabular
}

type Router struct {
	decoder Decoder
	tables  TableSink
	images  ImageSink
	logger  *zap.Logger
}

func NewRouter(decoder Decoder, tables TableSink, images ImageSink, logger *zap.Logger) *Router {
	return &Router{
		decoder: decoder,
		tables:  tables,
		images:  images,
		logger:  logger,
	}
}

// Route decodes every record of ch and hands the artifacts to the sinks. The
// first record that fails to decode aborts the channel. A tabular channel that
// fails never reaches its sink.
func (r *Router) Route(ctx context.Context, ch catalog.ChannelDescriptor, records Records) (Result, error) {
	if ch.SerializationFormat != "" && ch.SerializationFormat != SerializationCDR {
		return Result{}, &UnsupportedFormatError{Channel: ch.Name, Format: ch.SerializationFormat}
	}

	if IsImageChannel(ch.Name) {
		return r.routeImages(ctx, ch, records)
	}

	return r.routeTable(ctx, ch, records)
}

func (r *Router) routeTable(ctx context.Context, ch catalog.ChannelDescriptor, records Records) (Result, error) {
	result := Result{Kind: KindTabular}

	var flat []rosbag2.FlatRecord
	err := records.EachRecord(ctx, func(record store.RawRecord) error {
		v, err := r.decoder.Decode(ch.Type, record.Data)
		if err != nil {
			r.logger.Error("Failed to decode record",
				zap.String("channel", ch.Name),
				zap.Int("record", result.Records),
				zap.Int64("timestamp", record.Timestamp),
				zap.Error(err))
			return fmt.Errorf("record %d at %d: %w", result.Records, record.Timestamp, err)
		}

		flat = append(flat, rosbag2.Flatten(v))
		result.Records++
		return nil
	})
	if err != nil {
		return result, err
	}

	table := BuildTable(ch.Name, flat)
	if err := r.tables.WriteTable(ctx, table); err != nil {
		return result, fmt.Errorf("writing table: %w", err)
	}

	result.Columns = len(table.Columns)
	result.Artifacts = 1
	return result, nil
}

func (r *Router) routeImages(ctx context.Context, ch catalog.ChannelDescriptor, records Records) (Result, error) {
	result := Result{Kind: KindImage}
	compressed := rosbag2.IsCompressedImageType(ch.Type)

	err := records.EachRecord(ctx, func(record store.RawRecord) error {
		artifact, err := r.decodeImage(ch, compressed, record)
		if err != nil {
			r.logger.Error("Failed to decode image",
				zap.String("channel", ch.Name),
				zap.Int("record", result.Records),
				zap.Int64("timestamp", record.Timestamp),
				zap.Error(err))
			return fmt.Errorf("record %d at %d: %w", result.Records, record.Timestamp, err)
		}
		result.Records++

		if err := r.images.WriteImage(ctx, artifact); err != nil {
			return fmt.Errorf("writing image %s: %w", artifact.Key, err)
		}
		result.Artifacts++
		return nil
	})

	return result, err
}

func (r *Router) decodeImage(ch catalog.ChannelDescriptor, compressed bool, record store.RawRecord) (ImageArtifact, error) {
	artifact := ImageArtifact{Channel: ch.Name}

	if compressed {
		var img rosbag2.CompressedImage
		if err := r.decoder.UnmarshallTo(ch.Type, record.Data, &img); err != nil {
			return artifact, err
		}
		artifact.Key = img.Header.Stamp.Key()
		artifact.Compressed = &img
		return artifact, nil
	}

	var img rosbag2.Image
	if err := r.decoder.UnmarshallTo(ch.Type, record.Data, &img); err != nil {
		return artifact, err
	}
	artifact.Key = img.Header.Stamp.Key()
	artifact.Image = &img
	return artifact, nil
}
