// Package storetest builds rosbag2 SQLite databases for tests.
package storetest

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// schema is the layout rosbag2's sqlite3 storage plugin creates.
var schema = []string{
	`CREATE TABLE schema(schema_version INTEGER PRIMARY KEY, ros_distro TEXT NOT NULL)`,
	`CREATE TABLE metadata(id INTEGER PRIMARY KEY, metadata_version INTEGER NOT NULL, metadata TEXT NOT NULL)`,
	`CREATE TABLE topics(id INTEGER PRIMARY KEY, name TEXT NOT NULL, type TEXT NOT NULL, serialization_format TEXT NOT NULL, offered_qos_profiles TEXT NOT NULL)`,
	`CREATE TABLE messages(id INTEGER PRIMARY KEY, topic_id INTEGER NOT NULL, timestamp INTEGER NOT NULL, data BLOB NOT NULL)`,
	`CREATE INDEX timestamp_idx ON messages (timestamp ASC)`,
}

type Topic struct {
	ID   int64
	Name string
	Type string
}

type Message struct {
	TopicID   int64
	Timestamp int64
	Data      []byte
}

// Create writes a database at path holding topics and messages, in order.
func Create(tb testing.TB, path string, topics []Topic, messages []Message) {
	tb.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(tb, err)
	defer db.Close()

	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(tb, err)
	}

	for _, topic := range topics {
		_, err := db.Exec(`INSERT INTO topics(id, name, type, serialization_format, offered_qos_profiles) VALUES (?, ?, ?, 'cdr', '')`,
			topic.ID, topic.Name, topic.Type)
		require.NoError(tb, err)
	}

	for _, msg := range messages {
		_, err := db.Exec(`INSERT INTO messages(topic_id, timestamp, data) VALUES (?, ?, ?)`,
			msg.TopicID, msg.Timestamp, msg.Data)
		require.NoError(tb, err)
	}
}
