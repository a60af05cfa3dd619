package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"plazadatos/internal/models"
)

// Credentials is what a logged-in session persists between runs.
type Credentials struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

type TokenStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, nil
}

func (m *MemoryStore) Save(c Credentials) error {
	m.mu.Lock()
	m.creds = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error { return m.Save(Credentials{}) }

// FileStore keeps credentials in a JSON file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load() (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c Credentials
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func (f *FileStore) Save(c Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
