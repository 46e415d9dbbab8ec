package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
)

type TableSink interface {
	WriteTable(ctx context.Context, table Table) error
}

// ImageArtifact is one decoded image message. Exactly one of Image and
// Compressed is set.
type ImageArtifact struct {
	Channel    string
	Key        string
	Image      *rosbag2.Image
	Compressed *rosbag2.CompressedImage
}

type ImageSink interface {
	WriteImage(ctx context.Context, artifact ImageArtifact) error
}

// SanitizeName turns a topic name into a file name, "/camera/info" becomes
// "camera_info".
func SanitizeName(topic string) string {
	name := strings.ReplaceAll(strings.Trim(topic, "/"), "/", "_")
	if name == "" {
		return "root"
	}
	return name
}

// CSVSink writes each table to <dir>/<sanitized channel>.csv.
type CSVSink struct {
	dir string
}

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path returns the file a channel's table is written to.
func (s *CSVSink) Path(channel string) string {
	return filepath.Join(s.dir, SanitizeName(channel)+".csv")
}

// WriteTable writes the table to a temporary file first and renames it into
// place, so a failed write never leaves a partial CSV behind.
func (s *CSVSink) WriteTable(ctx context.Context, table Table) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, ".table-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		f.Close()
		return err
	}

	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}
		if err := w.Write(table.Record(i)); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), s.Path(table.Channel))
}

// ImageFileSink writes raw images as PNG and compressed images as they were
// recorded, named after their key.
type ImageFileSink struct {
	dir string
	// dirPerChannel puts every channel in its own sub directory, otherwise all
	// images share dir.
	dirPerChannel bool
}

func NewImageFileSink(dir string, dirPerChannel bool) *ImageFileSink {
	return &ImageFileSink{
		dir:           dir,
		dirPerChannel: dirPerChannel,
	}
}

// Path returns the file an artifact is written to.
func (s *ImageFileSink) Path(artifact ImageArtifact) string {
	dir := s.dir
	if s.dirPerChannel {
		dir = filepath.Join(dir, SanitizeName(artifact.Channel))
	}

	ext := ".png"
	if artifact.Compressed != nil {
		ext = CompressedExt(artifact.Compressed.Format)
	}

	return filepath.Join(dir, artifact.Key+ext)
}

func (s *ImageFileSink) WriteImage(ctx context.Context, artifact ImageArtifact) error {
	var data []byte
	switch {
	case artifact.Compressed != nil:
		data = artifact.Compressed.Data
	case artifact.Image != nil:
		img, err := ToImage(artifact.Image)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encoding png: %w", err)
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("image %s of %s has no pixels", artifact.Key, artifact.Channel)
	}

	path := s.Path(artifact)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// CompressedExt picks a file extension for a sensor_msgs/CompressedImage format
// such as "jpeg", "png" or "bgr8; jpeg compressed bgr8".
func CompressedExt(format string) string {
	format = strings.ToLower(format)
	switch {
	case strings.Contains(format, "png"):
		return ".png"
	case strings.Contains(format, "jpeg"), strings.Contains(format, "jpg"):
		return ".jpg"
	default:
		return ".bin"
	}
}
