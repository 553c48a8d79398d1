// Package storage provides the key-value backends used to persist
// conversation state and credentials, and the YAML knowledge file.
package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/valter-silva-au/kiya/pkg/models"
)

// KeyValueStore is an opaque string store. Get reports a missing key with
// ok=false and a nil error.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

type memoryKVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKVStore creates a KeyValueStore that lives only in memory.
func NewMemoryKVStore() KeyValueStore {
	return &memoryKVStore{data: make(map[string]string)}
}

func (m *memoryKVStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKVStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKVStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryKVStore) Close() error { return nil }

// Open returns the backend selected by cfg. Relative paths resolve against
// basePath.
func Open(cfg models.StorageConfig, basePath string) (KeyValueStore, error) {
	path := cfg.Path
	switch cfg.Backend {
	case "memory":
		return NewMemoryKVStore(), nil
	case "sqlite":
		if path == "" {
			path = "kiya.db"
		}
		return NewSQLiteKVStore(resolve(basePath, path))
	case "file", "":
		if path == "" {
			path = "kiya-store.json"
		}
		return NewFileKVStore(resolve(basePath, path)), nil
	default:
		return nil, fmt.Errorf("opening store: unknown backend %q", cfg.Backend)
	}
}

func resolve(basePath, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(basePath, path)
}
