package store

import (
	"bytes"
	"database/sql"
	"io"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/klauspost/compress/gzip"
)

// Store is an interface for a snapshot store.
// It stores and retrieves []byte values, which represent HTTP responses,
// keyed by request descriptors. Keys carry a cache-name prefix so that
// several generations can live in the same store side by side.
// Entries never expire on their own; they live until purged.
//
// Implementations must be thread-safe!
type Store interface {
	// Get returns the stored snapshot for the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	Get(key string) ([]byte, bool, error)
	// Put stores the given snapshot under the given key,
	// replacing any previous snapshot for the key.
	Put(key string, storedAt time.Time, bytes []byte) error
	// Has checks if the specified key exists in the store.
	Has(key string) bool
	// Purge removes the snapshot for the given key.
	Purge(key string) error
	// AllKeys calls the given callback for each key with the given prefix.
	// It calls the callback in order to enable very large lists of keys to be
	// processable (an implementation might use paging, for instance).
	AllKeys(prefix string, cb func(string))
	// Entries returns all snapshots that have the specific key prefix.
	Entries(prefix string) ([]Entry, error)
}

// Entry is one stored response snapshot.
type Entry struct {
	Key      string
	StoredAt time.Time
	Bytes    []byte
}

type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore creates a new store with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
// The db file and schema are created on first open.
// Snapshot bodies are gzip-compressed at rest.
func NewSQLiteStore(filename string) SQLiteStore {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		stored_at INTEGER,
		body BLOB
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s SQLiteStore) Get(key string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM snapshots WHERE key = ?", key).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	b, err := gunzip(body)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s SQLiteStore) Put(key string, storedAt time.Time, b []byte) error {
	body, err := gzipBytes(b)
	if err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err = s.db.Exec(`INSERT OR REPLACE INTO snapshots
		(key, stored_at, body) VALUES (?, ?, ?)`,
		key, storedAt.Unix(), body)
	return err
}

func (s SQLiteStore) Has(key string) bool {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM snapshots WHERE key = ?", key).Scan(&one)
	return err == nil
}

func (s SQLiteStore) Purge(key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM snapshots WHERE key = ?", key)
	return err
}

func (s SQLiteStore) AllKeys(prefix string, cb func(string)) {
	rows, err := s.db.Query("SELECT key FROM snapshots WHERE key LIKE ?", prefix+"%")
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return
		}
		cb(key)
	}
}

func (s SQLiteStore) Entries(prefix string) ([]Entry, error) {
	entries := make([]Entry, 0)
	rows, err := s.db.Query(`SELECT key, stored_at, body
		FROM snapshots WHERE key LIKE ?`, prefix+"%")
	if err != nil {
		return entries, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry Entry
		var storedAt int64
		var body []byte
		if err := rows.Scan(&entry.Key, &storedAt, &body); err != nil {
			return entries, err
		}
		entry.StoredAt = time.Unix(storedAt, 0)
		if entry.Bytes, err = gunzip(body); err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func gzipBytes(b []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
