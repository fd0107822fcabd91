package store

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	storedAt time.Time
	bytes    []byte
}

// MemoryStore is a non-persistent Store for testing and throwaway setups.
type MemoryStore struct {
	mutex *sync.RWMutex
	db    map[string]memEntry
}

func NewMemoryStore() MemoryStore {
	return MemoryStore{
		mutex: &sync.RWMutex{},
		db:    make(map[string]memEntry),
	}
}

func (m MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entry, ok := m.db[key]
	if !ok {
		return nil, false, nil
	}
	return entry.bytes, true, nil
}

func (m MemoryStore) Put(key string, storedAt time.Time, bytes []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[key] = memEntry{storedAt, bytes}
	return nil
}

func (m MemoryStore) Has(key string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.db[key]
	return ok
}

func (m MemoryStore) Purge(key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, key)
	return nil
}

func (m MemoryStore) AllKeys(prefix string, cb func(string)) {
	for _, key := range m.sortedKeys(prefix) {
		cb(key)
	}
}

func (m MemoryStore) Entries(prefix string) ([]Entry, error) {
	keys := m.sortedKeys(prefix)
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry := m.db[key]
		entries = append(entries, Entry{
			Key:      key,
			StoredAt: entry.storedAt,
			Bytes:    entry.bytes,
		})
	}
	return entries, nil
}

func (m MemoryStore) sortedKeys(prefix string) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	keys := make([]string, 0, len(m.db))
	for key := range m.db {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
