// Package storage provides the client-local key-value persistence
// layer used for tokens and progress records.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store defines the interface for client-local key-value persistence.
// Exactly one logical store instance exists per running client.
type Store interface {
	// Get returns the value for key and whether it is present.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error
}

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key and whether it is present.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FileStore is a Store backed by a single JSON document on disk.
// Writes are atomic (temp file plus rename) and the file is created
// with 0600 permissions since it holds session tokens.
type FileStore struct {
	mu     sync.Mutex
	path   string
	cipher *Cipher // nil means plaintext
	values map[string]string
}

// NewFileStore opens (or creates) a plaintext file store at path.
func NewFileStore(path string) (*FileStore, error) {
	return newFileStore(path, nil)
}

// NewEncryptedFileStore opens (or creates) a file store whose on-disk
// content is encrypted with a key derived from secret.
func NewEncryptedFileStore(path, secret string) (*FileStore, error) {
	return newFileStore(path, NewCipher(secret))
}

func newFileStore(path string, cipher *Cipher) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		cipher: cipher,
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the store file into memory. A missing file yields an
// empty store.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if s.cipher != nil {
		data, err = s.cipher.Open(data)
		if err != nil {
			return fmt.Errorf("failed to decrypt store file: %w", err)
		}
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		return fmt.Errorf("failed to parse store file: %w", err)
	}
	return nil
}

// flush writes the in-memory map to disk atomically.
func (s *FileStore) flush() error {
	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if s.cipher != nil {
		data, err = s.cipher.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt store: %w", err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set store file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Get returns the value for key and whether it is present.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key and persists the store.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

// Remove deletes key and persists the store.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}
