package extract

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Summary is the report of one recording, written as summary.yaml next to its
// artifacts.
type Summary struct {
	RunID     string           `yaml:"run_id"`
	Recording string           `yaml:"recording"`
	StartedAt time.Time        `yaml:"started_at"`
	Duration  time.Duration    `yaml:"duration"`
	Channels  []ChannelSummary `yaml:"channels"`
}

type ChannelSummary struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Kind      string `yaml:"kind"`
	Status    string `yaml:"status"`
	Declared  int64  `yaml:"declared_messages"`
	Records   int    `yaml:"records"`
	Columns   int    `yaml:"columns,omitempty"`
	Artifacts int    `yaml:"artifacts"`
	Error     string `yaml:"error,omitempty"`
	Warning   string `yaml:"warning,omitempty"`
}

// Failed counts the channels that did not produce their artifacts.
func (s *Summary) Failed() int {
	n := 0
	for _, ch := range s.Channels {
		if ch.Status != StatusOK {
			n++
		}
	}
	return n
}

// Channel returns the summary of the channel called name.
func (s *Summary) Channel(name string) (ChannelSummary, bool) {
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChannelSummary{}, false
}

func (s *Summary) WriteFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// ReadSummary loads a summary written by WriteFile.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	return &s, nil
}
