package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherman-cs/go-rosbag2/internal/manifest"
)

func entry(name, typ string, count manifest.Count) manifest.TopicEntry {
	return manifest.TopicEntry{
		Metadata: manifest.TopicMetadata{
			Name:                name,
			Type:                typ,
			SerializationFormat: "cdr",
		},
		MessageCount: count,
	}
}

func TestBuild(t *testing.T) {
	c := Build([]manifest.TopicEntry{
		entry("/imu", "sensor_msgs/msg/Imu", 2),
		entry("", "std_msgs/msg/String", 10),
		entry("/camera/image_raw", "sensor_msgs/msg/Image", 0),
	})

	require.Equal(t, 2, c.Len())

	imu, ok := c.Lookup("/imu")
	require.True(t, ok)
	assert.Equal(t, ChannelDescriptor{
		Name:                "/imu",
		Type:                "sensor_msgs/msg/Imu",
		SerializationFormat: "cdr",
		MessageCount:        2,
	}, imu)

	_, ok = c.Lookup("")
	assert.False(t, ok)
}

func TestBuildLastEntryWins(t *testing.T) {
	c := Build([]manifest.TopicEntry{
		entry("/a", "std_msgs/msg/String", 1),
		entry("/b", "std_msgs/msg/Int32", 1),
		entry("/a", "std_msgs/msg/Float64", 7),
	})

	channels := c.Channels()
	require.Len(t, channels, 2)
	assert.Equal(t, "/a", channels[0].Name)
	assert.Equal(t, "std_msgs/msg/Float64", channels[0].Type)
	assert.EqualValues(t, 7, channels[0].MessageCount)
	assert.Equal(t, "/b", channels[1].Name)
}

func TestBuildEmpty(t *testing.T) {
	c := Build(nil)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Channels())
}

func TestChannelsIsACopy(t *testing.T) {
	c := Build([]manifest.TopicEntry{entry("/a", "std_msgs/msg/String", 1)})

	channels := c.Channels()
	channels[0].Name = "/mutated"

	ch, ok := c.Lookup("/a")
	require.True(t, ok)
	assert.Equal(t, "/a", ch.Name)
	assert.Equal(t, "/a", c.Channels()[0].Name)
}
