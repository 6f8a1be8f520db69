package kv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Disk implements a file-per-key backend. The file holds the raw value, so
// a history file is the same JSON array the dashboard keeps in local storage.
type Disk struct {
	dir string
}

// NewDisk creates a new disk backend rooted at dir
func NewDisk(dir string) *Disk {
	return &Disk{dir: dir}
}

// Get retrieves a value from disk
func (d *Disk) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}

	return data, true, nil
}

// Set writes a value to disk, replacing the previous file atomically
func (d *Disk) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}

	return nil
}

// Close is a no-op for the disk backend
func (d *Disk) Close() error {
	return nil
}

// path generates the file path for a key
func (d *Disk) path(key string) string {
	return filepath.Join(d.dir, key+".json")
}
