// Package catalog maps the channels advertised by a manifest to their descriptors.
package catalog

import (
	"github.com/lherman-cs/go-rosbag2/internal/manifest"
)

// ChannelDescriptor describes one topic of a recording.
type ChannelDescriptor struct {
	Name                string
	Type                string
	SerializationFormat string
	MessageCount        int64
}

// Catalog is an immutable set of channels keyed by name. It remembers the order in
// which the manifest first listed each name.
type Catalog struct {
	byName map[string]ChannelDescriptor
	order  []string
}

// Build creates a catalog from manifest entries. Entries without a name are
// skipped, the last entry of a repeated name wins.
func Build(entries []manifest.TopicEntry) *Catalog {
	c := &Catalog{
		byName: make(map[string]ChannelDescriptor, len(entries)),
	}

	for _, entry := range entries {
		name := entry.Metadata.Name
		if name == "" {
			continue
		}

		if _, ok := c.byName[name]; !ok {
			c.order = append(c.order, name)
		}

		c.byName[name] = ChannelDescriptor{
			Name:                name,
			Type:                entry.Metadata.Type,
			SerializationFormat: entry.Metadata.SerializationFormat,
			MessageCount:        int64(entry.MessageCount),
		}
	}

	return c
}

func (c *Catalog) Lookup(name string) (ChannelDescriptor, bool) {
	ch, ok := c.byName[name]
	return ch, ok
}

func (c *Catalog) Len() int {
	return len(c.order)
}

// Channels returns the descriptors in manifest order. The slice is a copy.
func (c *Catalog) Channels() []ChannelDescriptor {
	channels := make([]ChannelDescriptor, len(c.order))
	for i, name := range c.order {
		channels[i] = c.byName[name]
	}
	return channels
}
