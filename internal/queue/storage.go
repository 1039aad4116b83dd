package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// DefaultKey is the well-known storage key holding the serialized queue.
const DefaultKey = "offline_mutation_queue"

// ErrNotFound is returned by Storage.Load when the key has never been written.
var ErrNotFound = errors.New("key not found")

// lockRetryDelay is how often a blocked file lock is retried.
const lockRetryDelay = 10 * time.Millisecond

// UpdateFunc receives the current value of a key (nil when it has never
// been written) and returns the value to store.
type UpdateFunc func(current []byte) ([]byte, error)

// Storage is a durable key/value byte store. Several processes may share
// one store: Update is atomic across all of them and TryLock hands out
// exclusive named locks.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// TryLock takes the named lock without waiting. ok is false when
	// another holder has it.
	TryLock(name string) (unlock func(), ok bool, err error)
	Close() error
}

// MemoryStorage keeps values in memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
	locks  map[string]bool
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte), locks: make(map[string]bool)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.values[key] = stored
	return nil
}

func (m *MemoryStorage) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.values[key])
	if err != nil {
		return err
	}
	stored := make([]byte, len(next))
	copy(stored, next)
	m.values[key] = stored
	return nil
}

func (m *MemoryStorage) TryLock(name string) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] {
		return nil, false, nil
	}
	m.locks[name] = true
	return func() {
		m.mu.Lock()
		delete(m.locks, name)
		m.mu.Unlock()
	}, true, nil
}

func (m *MemoryStorage) Close() error { return nil }

// FileStorage keeps each key in its own file under a directory.
// Writes go to a temp file that is renamed into place. Updates hold an
// flock on a sibling .lock file.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStorage) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (f *FileStorage) Save(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (f *FileStorage) Update(ctx context.Context, key string, fn UpdateFunc) error {
	lock := flock.New(filepath.Join(f.dir, key+".lock"))
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	defer func() { _ = lock.Unlock() }()

	current, err := f.Load(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return f.Save(ctx, key, next)
}

func (f *FileStorage) TryLock(name string) (func(), bool, error) {
	return tryFileLock(filepath.Join(f.dir, name+".lock"))
}

func (f *FileStorage) Close() error { return nil }

// tryFileLock takes an flock on path without waiting.
func tryFileLock(path string) (func(), bool, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, false, nil
	}
	return func() { _ = lock.Unlock() }, true, nil
}
