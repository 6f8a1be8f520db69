package kv

import "errors"

// Layered keeps a memory copy of a durable backend. The durable layer is
// authoritative, so processes sharing it see each other's writes; the memory
// copy is served only while the durable layer cannot be read.
type Layered struct {
	memory  Backend
	durable Backend
}

// NewLayered creates a new layered backend
func NewLayered(memory, durable Backend) *Layered {
	return &Layered{
		memory:  memory,
		durable: durable,
	}
}

// Get reads the durable layer and refreshes the memory copy. When the
// durable read fails, the last value seen by this process is returned.
func (l *Layered) Get(key string) ([]byte, bool, error) {
	val, found, err := l.durable.Get(key)
	if err != nil {
		if cached, ok, merr := l.memory.Get(key); merr == nil && ok {
			return cached, true, nil
		}
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	_ = l.memory.Set(key, val)
	return val, true, nil
}

// Set writes through: the durable layer first, then memory. A failed
// durable write leaves memory untouched so both layers stay consistent.
func (l *Layered) Set(key string, value []byte) error {
	if err := l.durable.Set(key, value); err != nil {
		return err
	}
	return l.memory.Set(key, value)
}

// Close closes both layers
func (l *Layered) Close() error {
	return errors.Join(l.memory.Close(), l.durable.Close())
}
