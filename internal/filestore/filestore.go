// Package filestore persists uploaded document blobs. Names are generated
// by the caller and treated as write-once: a blob is never overwritten.
package filestore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrExists is returned when a blob name is written twice.
var ErrExists = errors.New("filestore: blob already exists")

// ErrNotFound is returned when a blob is absent.
var ErrNotFound = errors.New("filestore: blob not found")

// Storage is the write-once blob collaborator used by the document registry.
type Storage interface {
	Save(name string, data []byte) error
	Exists(name string) bool
	Read(name string) ([]byte, error)
}

// Disk stores blobs as flat files under a root directory.
type Disk struct {
	root string
}

// NewDisk creates the root directory if needed.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Disk{root: root}, nil
}

func (d *Disk) path(name string) string {
	// Base strips any path components a hostile name could smuggle in.
	return filepath.Join(d.root, filepath.Base(name))
}

func (d *Disk) Save(name string, data []byte) error {
	f, err := os.OpenFile(d.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *Disk) Exists(name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

func (d *Disk) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Memory is an in-process Storage used by tests and DSN-less runs.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Save(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[name]; ok {
		return ErrExists
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[name] = cp
	return nil
}

func (m *Memory) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[name]
	return ok
}

func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
