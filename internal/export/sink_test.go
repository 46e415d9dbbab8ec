package export

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "imu", SanitizeName("/imu"))
	assert.Equal(t, "camera_info", SanitizeName("/camera/info"))
	assert.Equal(t, "a_b", SanitizeName("a/b/"))
	assert.Equal(t, "root", SanitizeName("/"))
}

func TestCSVSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "csv_files")
	sink := NewCSVSink(dir)

	table := BuildTable("/imu", []rosbag2.FlatRecord{
		{"orientation.w": 1.0, "frame_id": "base, link"},
		{"orientation.w": 0.5},
	})
	require.NoError(t, sink.WriteTable(context.Background(), table))

	data, err := os.ReadFile(filepath.Join(dir, "imu.csv"))
	require.NoError(t, err)
	assert.Equal(t, "frame_id,orientation.w\n\"base, link\",1\n,0.5\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestCSVSinkHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)

	require.NoError(t, sink.WriteTable(context.Background(), BuildTable("/empty", nil)))

	data, err := os.ReadFile(sink.Path("/empty"))
	require.NoError(t, err)
	assert.Equal(t, "\n", string(data))
}

func TestCSVSinkReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)
	require.NoError(t, os.WriteFile(sink.Path("/a"), []byte("stale"), 0o644))

	table := BuildTable("/a", []rosbag2.FlatRecord{{"x": 1}})
	require.NoError(t, sink.WriteTable(context.Background(), table))

	data, err := os.ReadFile(sink.Path("/a"))
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}

func TestImageFileSinkRaw(t *testing.T) {
	dir := t.TempDir()
	sink := NewImageFileSink(dir, false)

	artifact := ImageArtifact{
		Channel: "/camera/image_raw",
		Key:     "1_500",
		Image: &rosbag2.Image{
			Width:    2,
			Height:   2,
			Encoding: "rgb8",
			Step:     6,
			Data:     []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255},
		},
	}
	require.NoError(t, sink.WriteImage(context.Background(), artifact))

	path := filepath.Join(dir, "1_500.png")
	assert.Equal(t, path, sink.Path(artifact))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	r, g, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0}, []uint32{r, g, b})
}

func TestImageFileSinkCompressed(t *testing.T) {
	dir := t.TempDir()
	sink := NewImageFileSink(dir, true)

	artifact := ImageArtifact{
		Channel:    "/camera/image/compressed",
		Key:        "3_4",
		Compressed: &rosbag2.CompressedImage{Format: "rgb8; jpeg compressed bgr8", Data: []byte{0xff, 0xd8, 0xff}},
	}
	require.NoError(t, sink.WriteImage(context.Background(), artifact))

	data, err := os.ReadFile(filepath.Join(dir, "camera_image_compressed", "3_4.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}

func TestImageFileSinkSameKeyOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink := NewImageFileSink(dir, false)

	for _, b := range []byte{1, 2} {
		artifact := ImageArtifact{
			Channel:    "/image",
			Key:        "1_0",
			Compressed: &rosbag2.CompressedImage{Format: "png", Data: []byte{b}},
		}
		require.NoError(t, sink.WriteImage(context.Background(), artifact))
	}

	data, err := os.ReadFile(filepath.Join(dir, "1_0.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, data)
}

func TestImageFileSinkBadImage(t *testing.T) {
	sink := NewImageFileSink(t.TempDir(), false)

	err := sink.WriteImage(context.Background(), ImageArtifact{
		Channel: "/image",
		Key:     "1_0",
		Image:   &rosbag2.Image{Width: 2, Height: 2, Encoding: "rgb8", Step: 6, Data: []byte{1}},
	})
	assert.Error(t, err)

	assert.Error(t, sink.WriteImage(context.Background(), ImageArtifact{Channel: "/image", Key: "2_0"}))
}

func TestCompressedExt(t *testing.T) {
	assert.Equal(t, ".jpg", CompressedExt("jpeg"))
	assert.Equal(t, ".jpg", CompressedExt("JPG"))
	assert.Equal(t, ".png", CompressedExt("bgr8; png compressed bgr8"))
	assert.Equal(t, ".bin", CompressedExt("h264"))
}
