// Package kv provides the key-value backends that hold persisted dashboard
// state. Values are opaque byte blobs; callers own the serialization.
package kv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/deepcheck/internal/model"
)

var (
	// ErrEmptyKey is returned for an empty key
	ErrEmptyKey = errors.New("kv: empty key")
	// ErrInvalidKey is returned for keys that could escape a backend's namespace
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Backend defines the interface for key-value storage
type Backend interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set; err reports an unavailable or broken backend.
	Get(key string) (value []byte, found bool, err error)
	// Set replaces the value stored under key
	Set(key string, value []byte) error
	// Close releases any resources held by the backend
	Close() error
}

// Open creates the backend selected by the history configuration
func Open(cfg model.HistoryConfig) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return NewMemory(), nil
	case "disk":
		if cfg.Path == "" {
			return nil, fmt.Errorf("disk backend requires history.path")
		}
		return NewDisk(cfg.Path), nil
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "layered":
		durable, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewLayered(NewMemory(), durable), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s (supported: memory, disk, sqlite, layered)", cfg.Backend)
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}
