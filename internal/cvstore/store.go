// Package cvstore persists CV form data in a local SQLite database.
//
// Values are JSON documents in a key/value table, partitioned by namespace
// so several profiles can share one file. The whole CV lives under
// [CVKey]. The collaboration core never writes here; callers decide when a
// shared snapshot is folded in and saved.
package cvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/logging"
)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "default"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);`

// Store is a namespaced JSON key/value store. It is safe for concurrent use.
type Store struct {
	db        *sql.DB
	namespace string
	clock     clock.Clock
	logger    *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace partitions keys under ns.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithClock sets the clock used for updated_at.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "cvstore: mkdir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "cvstore: open")
	}
	// A :memory: database exists per connection; one connection keeps a
	// single database for the Store's lifetime.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 10000", "PRAGMA synchronous = NORMAL"}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "cvstore: init %q", p)
		}
	}

	s := &Store{
		db:        db,
		namespace: DefaultNamespace,
		clock:     clock.Real(),
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns the namespace keys are stored under.
func (s *Store) Namespace() string { return s.namespace }

// Put stores v as JSON under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cvstore: encode %s", key)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.namespace, key, string(data), s.clock.Now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "cvstore: put %s", key)
	}
	s.logger.Debug("stored value", "namespace", s.namespace, "key", key, "bytes", len(data))
	return nil
}

// Get decodes the value stored under key into v. A missing key returns a
// *errors.NotFoundError.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError("key", key)
	}
	if err != nil {
		return errors.Wrapf(err, "cvstore: get %s", key)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return errors.Wrapf(err, "cvstore: decode %s", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key); err != nil {
		return errors.Wrapf(err, "cvstore: delete %s", key)
	}
	return nil
}

// Keys returns the keys in the store's namespace, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE namespace = ? ORDER BY key`, s.namespace)
	if err != nil {
		return nil, errors.Wrap(err, "cvstore: keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "cvstore: keys")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SaveCV stores cv under CVKey.
func (s *Store) SaveCV(ctx context.Context, cv CVData) error {
	cv.normalize()
	return s.Put(ctx, CVKey, cv)
}

// LoadCV returns the stored CV, or an empty CV when none has been saved.
func (s *Store) LoadCV(ctx context.Context) (CVData, error) {
	var cv CVData
	err := s.Get(ctx, CVKey, &cv)
	var notFound *errors.NotFoundError
	if errors.As(err, &notFound) {
		cv = CVData{}
		cv.normalize()
		return cv, nil
	}
	if err != nil {
		return CVData{}, err
	}
	cv.normalize()
	return cv, nil
}
