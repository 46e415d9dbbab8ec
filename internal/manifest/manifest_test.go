package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `rosbag2_bagfile_information:
  version: 5
  storage_identifier: sqlite3
  duration:
    nanoseconds: 1500000000
  starting_time:
    nanoseconds_since_epoch: 1700000000000000000
  message_count: 3
  topics_with_message_count:
    - topic_metadata:
        name: /imu
        type: sensor_msgs/msg/Imu
        serialization_format: cdr
        offered_qos_profiles: "  "
      message_count: 2
    - topic_metadata:
        type: std_msgs/msg/String
        serialization_format: cdr
      message_count: 1
    - topic_metadata:
        name: /odom
        type: nav_msgs/msg/Odometry
        serialization_format: cdr
  compression_format: ""
  compression_mode: ""
  relative_file_paths:
    - sample_0.db3
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 5, m.Version)
	assert.Equal(t, StorageSQLite3, m.StorageIdentifier)
	assert.EqualValues(t, 3, m.MessageCount)
	assert.EqualValues(t, 1500000000, m.Duration.Nanoseconds)
	require.Len(t, m.Topics, 3)

	assert.Equal(t, "/imu", m.Topics[0].Metadata.Name)
	assert.EqualValues(t, "", m.Topics[0].Metadata.OfferedQoSProfiles)
	assert.EqualValues(t, 2, m.Topics[0].MessageCount)
	assert.Equal(t, "", m.Topics[1].Metadata.Name)
	assert.EqualValues(t, 0, m.Topics[2].MessageCount)

	file, err := m.StoreFile()
	require.NoError(t, err)
	assert.Equal(t, "sample_0.db3", file)
}

const sampleV9 = `rosbag2_bagfile_information:
  version: 9
  storage_identifier: sqlite3
  duration:
    nanoseconds: 2000000000
  starting_time:
    nanoseconds_since_epoch: 1710000000000000000
  message_count: 4
  topics_with_message_count:
    - topic_metadata:
        name: /chatter
        type: std_msgs/msg/String
        serialization_format: cdr
        offered_qos_profiles:
          - history: keep_last
            depth: 10
            reliability: reliable
            durability: volatile
        type_description_hash: RIHS01_df668c740482bbd48fb39d76a70dfd4bd59db1288021743503259e948f6b1a18
      message_count: 4
    - ""
    - 0
    - topic_metadata:
        name: /empty_qos
        type: std_msgs/msg/Empty
        serialization_format: cdr
        offered_qos_profiles: []
        type_description_hash: ""
      message_count: 0
  compression_format: ""
  compression_mode: ""
  relative_file_paths:
    - chatter_0.db3
  files:
    - path: chatter_0.db3
      starting_time:
        nanoseconds_since_epoch: 1710000000000000000
      duration:
        nanoseconds: 2000000000
      message_count: 4
  custom_data: ~
  ros_distro: jazzy
`

func TestParseVersion9(t *testing.T) {
	m, err := Parse([]byte(sampleV9))
	require.NoError(t, err)

	assert.Equal(t, 9, m.Version)
	require.Len(t, m.Topics, 2)

	chatter := m.Topics[0]
	assert.Equal(t, "/chatter", chatter.Metadata.Name)
	assert.Equal(t, "std_msgs/msg/String", chatter.Metadata.Type)
	assert.EqualValues(t, 4, chatter.MessageCount)
	assert.Contains(t, string(chatter.Metadata.OfferedQoSProfiles), "history: keep_last")
	assert.Equal(t, "RIHS01_df668c740482bbd48fb39d76a70dfd4bd59db1288021743503259e948f6b1a18", chatter.Metadata.TypeDescriptionHash)

	assert.Equal(t, "/empty_qos", m.Topics[1].Metadata.Name)
	assert.EqualValues(t, "", m.Topics[1].Metadata.OfferedQoSProfiles)
}

func TestParseSkipsPlaceholderTopics(t *testing.T) {
	raw := `rosbag2_bagfile_information:
  topics_with_message_count:
    - placeholder
    - topic_metadata:
        name: /imu
        type: sensor_msgs/msg/Imu
      message_count: 1
    - [1, 2]
`
	m, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, m.Topics, 1)
	assert.Equal(t, "/imu", m.Topics[0].Metadata.Name)
}

func TestParseCount(t *testing.T) {
	testCases := []struct {
		Raw      string
		Expected Count
	}{
		{Raw: "12", Expected: 12},
		{Raw: "12.9", Expected: 12},
		{Raw: "-4", Expected: 0},
		{Raw: "", Expected: 0},
		{Raw: "null", Expected: 0},
		{Raw: "many", Expected: 0},
		{Raw: "0x10", Expected: 16},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Raw, func(t *testing.T) {
			assert.Equal(t, testCase.Expected, ParseCount(testCase.Raw))
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		Name string
		Raw  string
	}{
		{Name: "Missing root", Raw: "foo: bar\n"},
		{Name: "Unsupported storage", Raw: "rosbag2_bagfile_information:\n  storage_identifier: mcap\n"},
		{Name: "Unsupported compression mode", Raw: "rosbag2_bagfile_information:\n  compression_mode: chunk\n"},
		{Name: "Invalid yaml", Raw: "rosbag2_bagfile_information: [\n"},
		{Name: "Topics not a list", Raw: "rosbag2_bagfile_information:\n  topics_with_message_count: nope\n"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			_, err := Parse([]byte(testCase.Raw))
			assert.Error(t, err)
		})
	}
}

func TestCompressionModeIsCaseInsensitive(t *testing.T) {
	m, err := Parse([]byte("rosbag2_bagfile_information:\n  compression_mode: FILE\n  compression_format: zstd\n"))
	require.NoError(t, err)
	assert.Equal(t, CompressionModeFile, m.CompressionMode)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Topics, 3)

	_, err = Load(filepath.Join(t.TempDir(), FileName))
	assert.Error(t, err)
}

func TestStoreFileMissing(t *testing.T) {
	var m Manifest
	_, err := m.StoreFile()
	assert.Error(t, err)
}
