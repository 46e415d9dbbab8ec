// Package manifest reads the metadata.yaml file rosbag2 writes next to a recording.
package manifest

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FileName = "metadata.yaml"

	StorageSQLite3 = "sqlite3"

	CompressionModeNone    = ""
	CompressionModeFile    = "file"
	CompressionModeMessage = "message"
)

var (
	errMissingRoot        = errors.New("missing rosbag2_bagfile_information")
	errUnsupportedStorage = errors.New("unsupported storage identifier")
)

type document struct {
	Info *Manifest `yaml:"rosbag2_bagfile_information"`
}

// Manifest is the rosbag2_bagfile_information block of metadata.yaml.
type Manifest struct {
	Version           int          `yaml:"version"`
	StorageIdentifier string       `yaml:"storage_identifier"`
	RelativeFilePaths []string     `yaml:"relative_file_paths"`
	Duration          Duration     `yaml:"duration"`
	StartingTime      StartingTime `yaml:"starting_time"`
	MessageCount      Count        `yaml:"message_count"`
	Topics            TopicList    `yaml:"topics_with_message_count"`
	CompressionFormat string       `yaml:"compression_format"`
	CompressionMode   string       `yaml:"compression_mode"`
}

type Duration struct {
	Nanoseconds int64 `yaml:"nanoseconds"`
}

type StartingTime struct {
	NanosecondsSinceEpoch int64 `yaml:"nanoseconds_since_epoch"`
}

// TopicList is topics_with_message_count. Entries that aren't mappings are
// placeholders and get dropped.
type TopicList []TopicEntry

func (l *TopicList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: topics_with_message_count is not a list", node.Line)
	}

	entries := make(TopicList, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}

		var entry TopicEntry
		if err := item.Decode(&entry); err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	*l = entries
	return nil
}

type TopicEntry struct {
	Metadata     TopicMetadata `yaml:"topic_metadata"`
	MessageCount Count         `yaml:"message_count"`
}

type TopicMetadata struct {
	Name                string      `yaml:"name"`
	Type                string      `yaml:"type"`
	SerializationFormat string      `yaml:"serialization_format"`
	OfferedQoSProfiles  QoSProfiles `yaml:"offered_qos_profiles"`
	TypeDescriptionHash string      `yaml:"type_description_hash"`
}

// QoSProfiles holds offered_qos_profiles as YAML text. Older recordings store
// it as a string block, version 9 and later as a list of mappings.
type QoSProfiles string

func (q *QoSProfiles) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*q = QoSProfiles(strings.TrimSpace(node.Value))
		return nil
	}

	if len(node.Content) == 0 {
		*q = ""
		return nil
	}

	out, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	*q = QoSProfiles(strings.TrimSpace(string(out)))
	return nil
}

// Count is a lenient non-negative message count. Integers, floats and numeric
// strings are accepted, anything negative or unparsable becomes 0.
type Count int64

func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	*c = ParseCount(node.Value)
	return nil
}

// ParseCount coerces raw to a Count.
func ParseCount(raw string) Count {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 0, 64); err == nil {
		if n < 0 {
			return 0
		}
		return Count(n)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > math.MaxInt64 {
		return Count(math.MaxInt64)
	}
	return Count(f)
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Parse decodes and validates a metadata.yaml document.
func Parse(data []byte) (*Manifest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if doc.Info == nil {
		return nil, errMissingRoot
	}

	if err := doc.Info.validate(); err != nil {
		return nil, err
	}

	return doc.Info, nil
}

func (m *Manifest) validate() error {
	if m.StorageIdentifier != "" && m.StorageIdentifier != StorageSQLite3 {
		return fmt.Errorf("%w: %s", errUnsupportedStorage, m.StorageIdentifier)
	}

	m.CompressionMode = strings.ToLower(m.CompressionMode)
	switch m.CompressionMode {
	case CompressionModeNone, CompressionModeFile, CompressionModeMessage:
	default:
		return fmt.Errorf("unsupported compression mode: %s", m.CompressionMode)
	}

	return nil
}

// StoreFile returns the first storage file of the recording.
func (m *Manifest) StoreFile() (string, error) {
	if len(m.RelativeFilePaths) == 0 {
		return "", errors.New("manifest lists no storage files")
	}

	return m.RelativeFilePaths[0], nil
}
