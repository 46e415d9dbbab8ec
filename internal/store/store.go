// Package store reads raw messages out of a rosbag2 SQLite database. Only the
// topics and messages tables are touched, and only for reading.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lherman-cs/go-rosbag2/internal/manifest"
)

const (
	queryTopicID  = `SELECT id FROM topics WHERE name = ?`
	queryMessages = `SELECT topic_id, timestamp, data FROM messages WHERE topic_id = ? ORDER BY rowid`
)

// RawRecord is one stored message.
type RawRecord struct {
	TopicID int64
	// Timestamp is the receive time in nanoseconds since the epoch.
	Timestamp int64
	Data      []byte
}

// Options mirror the compression settings of the manifest.
type Options struct {
	CompressionMode   string
	CompressionFormat string
}

// Store is a read-only handle on one recording database.
type Store struct {
	db      *sql.DB
	path    string
	tmpPath string
	// compression applied to every message payload, only in message mode
	compression Compression
	logger      *zap.Logger
}

// Open opens the database at path. Compressed databases, compression mode
// "file", are inflated into a temporary file first. Every failure is an
// *AccessError.
func Open(ctx context.Context, path string, opts Options, logger *zap.Logger) (*Store, error) {
	compression, err := ParseCompression(opts.CompressionFormat)
	if err != nil {
		return nil, &AccessError{Path: path, Op: "open", Err: err}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, &AccessError{Path: path, Op: "open", Err: err}
	}

	s := &Store{
		path:   path,
		logger: logger.With(zap.String("store", path)),
	}

	dbPath := path
	switch opts.CompressionMode {
	case manifest.CompressionModeFile:
		if compression == CompressionNone {
			return nil, &AccessError{Path: path, Op: "open", Err: errors.New("file compression without a compression format")}
		}

		s.tmpPath, err = decompressFile(compression, path)
		if err != nil {
			return nil, &AccessError{Path: path, Op: "decompress", Err: err}
		}
		dbPath = s.tmpPath
		s.logger.Debug("Decompressed record store", zap.String("tmp", s.tmpPath), zap.String("format", string(compression)))
	case manifest.CompressionModeMessage:
		s.compression = compression
	}

	dsn, err := readOnlyDSN(dbPath)
	if err != nil {
		s.removeTmp()
		return nil, &AccessError{Path: path, Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.removeTmp()
		return nil, &AccessError{Path: path, Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		s.removeTmp()
		return nil, &AccessError{Path: path, Op: "open", Err: err}
	}

	s.db = db
	s.logger.Debug("Opened record store")
	return s, nil
}

func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=ro&_pragma=busy_timeout(5000)",
	}
	return u.String(), nil
}

// Close releases the connection and removes any temporary database.
func (s *Store) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}

	if rmErr := s.removeTmp(); rmErr != nil {
		err = errors.Join(err, rmErr)
	}

	if err != nil {
		return &AccessError{Path: s.path, Op: "close", Err: err}
	}

	s.logger.Debug("Closed record store")
	return nil
}

func (s *Store) removeTmp() error {
	if s.tmpPath == "" {
		return nil
	}

	err := os.Remove(s.tmpPath)
	s.tmpPath = ""
	return err
}

// ResolveTopicID returns the id of the topic called name. A missing topic is a
// *NotFoundError.
func (s *Store) ResolveTopicID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, queryTopicID, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, &NotFoundError{Topic: name}
	case err != nil:
		return 0, &AccessError{Path: s.path, Op: "query topics", Err: err}
	}

	return id, nil
}

// Records returns every message of topicID in storage order. A topic without
// messages yields an empty slice.
func (s *Store) Records(ctx context.Context, topicID int64) ([]RawRecord, error) {
	records := []RawRecord{}
	err := s.EachRecord(ctx, topicID, func(record RawRecord) error {
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// EachRecord streams the messages of topicID to fn in storage order. An error
// returned by fn stops the iteration and is returned as is.
func (s *Store) EachRecord(ctx context.Context, topicID int64, fn func(RawRecord) error) error {
	rows, err := s.db.QueryContext(ctx, queryMessages, topicID)
	if err != nil {
		return &AccessError{Path: s.path, Op: "query messages", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var record RawRecord
		if err := rows.Scan(&record.TopicID, &record.Timestamp, &record.Data); err != nil {
			return &AccessError{Path: s.path, Op: "scan messages", Err: err}
		}

		record.Data, err = decompress(s.compression, record.Data)
		if err != nil {
			return fmt.Errorf("decompressing message at %d: %w", record.Timestamp, err)
		}

		if err := fn(record); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return &AccessError{Path: s.path, Op: "read messages", Err: err}
	}

	return nil
}

// TopicRecords is the message stream of a single topic.
type TopicRecords struct {
	store   *Store
	topicID int64
}

// Topic returns the messages of topicID as a stream.
func (s *Store) Topic(topicID int64) TopicRecords {
	return TopicRecords{store: s, topicID: topicID}
}

func (t TopicRecords) EachRecord(ctx context.Context, fn func(RawRecord) error) error {
	return t.store.EachRecord(ctx, t.topicID, fn)
}
