package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every key in one JSON object on disk
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// NewFileStore loads the store at path. A missing file starts empty.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, values: make(map[string]string)}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &fs.values); err != nil {
		return fmt.Errorf("failed to parse store file %s: %w", fs.path, err)
	}
	if fs.values == nil {
		fs.values = make(map[string]string)
	}
	return nil
}

// Get returns the value stored under key
func (fs *FileStore) Get(key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	value, ok := fs.values[key]
	return value, ok, nil
}

// Set stores value under key and writes the file
func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	previous, existed := fs.values[key]
	fs.values[key] = value
	if err := fs.save(); err != nil {
		if existed {
			fs.values[key] = previous
		} else {
			delete(fs.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and writes the file
func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	previous, existed := fs.values[key]
	if !existed {
		return nil
	}
	delete(fs.values, key)
	if err := fs.save(); err != nil {
		fs.values[key] = previous
		return err
	}
	return nil
}

// Close is a no-op; every mutation is already on disk
func (fs *FileStore) Close() error {
	return nil
}

// save writes the values to a temp file and renames it over the store file
func (fs *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
