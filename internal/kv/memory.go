package kv

import (
	gocache "github.com/patrickmn/go-cache"
)

// Memory implements an in-process backend. Contents are lost on exit.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates a new memory backend whose entries never expire
func NewMemory() *Memory {
	return &Memory{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the backend
func (m *Memory) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	val, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	return clone(val.([]byte)), true, nil
}

// Set stores a value in the backend
func (m *Memory) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.cache.Set(key, clone(value), gocache.NoExpiration)
	return nil
}

// Close flushes the backend
func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
