package localcache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage is the on-device key-value string store contract. It has no
// built-in TTL; the cache layers its own freshness checks on top.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string)
}

// MemoryStorage is an in-memory Storage, useful for tests and ephemeral
// sessions. Safe for concurrent use.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// FileStorage keeps each key as a file under a directory, surviving process
// restarts the way browser storage survives reloads.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates the backing directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	// Keys are internal slot names; sanitize anyway.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(f.dir, safe)
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

func (f *FileStorage) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = os.Remove(f.path(key))
}
