package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Compression string

const (
	CompressionNone Compression = ""
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

var (
	errUnsupportedCompression = errors.New("unsupported compression algorithm. Available algorithms: [zstd, lz4]")
)

// ParseCompression maps a manifest compression_format to a Compression.
func ParseCompression(format string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(format))); c {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %s", errUnsupportedCompression, format)
	}
}

// newDecompressReader wraps r with the decoder of compression.
func newDecompressReader(compression Compression, r io.Reader) (io.ReadCloser, error) {
	switch compression {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, errUnsupportedCompression
	}
}

// decompress inflates one compressed message payload.
func decompress(compression Compression, data []byte) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}

	rc, err := newDecompressReader(compression, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// decompressFile inflates the compressed database at path into a temporary file
// and returns its name. The caller removes it.
func decompressFile(compression Compression, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	rc, err := newDecompressReader(compression, src)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dst, err := os.CreateTemp("", "rosbag2-*.db3")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, rc); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}

	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}
