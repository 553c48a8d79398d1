package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// fileKVStore keeps every key as a top-level member of one JSON document on
// disk, the way a browser's localStorage keeps one entry per key. Writes hold
// a lock file next to the document so a chat session and the HTTP server can
// share one store.
type fileKVStore struct {
	mu   sync.Mutex
	path string
}

// NewFileKVStore creates a KeyValueStore backed by the JSON document at
// path. The file is created on first write; a missing file reads as empty.
func NewFileKVStore(path string) KeyValueStore {
	return &fileKVStore{path: path}
}

func (s *fileKVStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	res := gjson.GetBytes(doc, escapeKey(key))
	if !res.Exists() {
		return "", false, nil
	}
	return res.String(), true, nil
}

func (s *fileKVStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	doc, err := s.readOrReset()
	if err != nil {
		return err
	}
	doc, err = sjson.SetBytes(doc, escapeKey(key), value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return s.write(doc)
}

func (s *fileKVStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	doc, err := s.readOrReset()
	if err != nil {
		return err
	}
	if !gjson.GetBytes(doc, escapeKey(key)).Exists() {
		return nil
	}
	doc, err = sjson.DeleteBytes(doc, escapeKey(key))
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return s.write(doc)
}

func (s *fileKVStore) Close() error { return nil }

var errCorruptDocument = errors.New("store document is not a JSON object")

func (s *fileKVStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("reading store %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("reading store %s: %w", s.path, errCorruptDocument)
	}
	return data, nil
}

// readOrReset moves an unreadable document aside so writes can continue.
func (s *fileKVStore) readOrReset() ([]byte, error) {
	doc, err := s.read()
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, errCorruptDocument) {
		return nil, err
	}
	if err := os.Rename(s.path, s.path+".corrupt"); err != nil {
		return nil, fmt.Errorf("moving corrupt store aside: %w", err)
	}
	return []byte("{}"), nil
}

// write replaces the document atomically.
func (s *fileKVStore) write(doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o600); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

// escapeKey turns a literal key into a gjson/sjson path of one component.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
