package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/deepcheck/internal/model"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)

	layeredDurable, err := OpenSQLite(filepath.Join(t.TempDir(), "layered.db"))
	require.NoError(t, err)

	all := map[string]Backend{
		"memory":  NewMemory(),
		"disk":    NewDisk(t.TempDir()),
		"sqlite":  sqlite,
		"layered": NewLayered(NewMemory(), layeredDurable),
	}
	t.Cleanup(func() {
		for _, b := range all {
			_ = b.Close()
		}
	})
	return all
}

func TestBackends_GetSet(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := b.Get("missing")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, b.Set("history", []byte(`[{"id":"1"}]`)))
			val, found, err := b.Get("history")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, `[{"id":"1"}]`, string(val))

			require.NoError(t, b.Set("history", []byte(`[]`)))
			val, _, err = b.Get("history")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(val))
		})
	}
}

func TestBackends_RejectInvalidKeys(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := b.Set("", []byte("x"))
			assert.True(t, errors.Is(err, ErrEmptyKey), "got %v", err)

			err = b.Set("../escape", []byte("x"))
			assert.True(t, errors.Is(err, ErrInvalidKey), "got %v", err)
		})
	}
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := NewMemory()
	value := []byte("abc")
	require.NoError(t, m.Set("k", value))
	value[0] = 'x'

	got, _, err := m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestDisk_StoresRawValue(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir)
	require.NoError(t, d.Set("deepcheck_analysis_history", []byte(`[]`)))

	raw, err := os.ReadFile(filepath.Join(dir, "deepcheck_analysis_history.json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))
}

func TestDisk_UnreadableIsAnError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the value file should be makes the read fail
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "k.json"), 0755))

	_, found, err := NewDisk(dir).Get("k")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestSQLite_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	val, found, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", string(val))
}

type failingBackend struct{ err error }

func (f failingBackend) Get(string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingBackend) Set(string, []byte) error         { return f.err }
func (f failingBackend) Close() error                     { return nil }

func TestLayered_PromotesAndWritesThrough(t *testing.T) {
	memory := NewMemory()
	durable := NewMemory()
	require.NoError(t, durable.Set("k", []byte("from-durable")))

	l := NewLayered(memory, durable)
	val, found, err := l.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "from-durable", string(val))

	promoted, found, _ := memory.Get("k")
	require.True(t, found)
	assert.Equal(t, "from-durable", string(promoted))

	require.NoError(t, l.Set("k", []byte("new")))
	stored, _, _ := durable.Get("k")
	assert.Equal(t, "new", string(stored))
}

func TestLayered_SeesWritesFromOtherProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	durableA, err := OpenSQLite(path)
	require.NoError(t, err)
	durableB, err := OpenSQLite(path)
	require.NoError(t, err)

	a := NewLayered(NewMemory(), durableA)
	b := NewLayered(NewMemory(), durableB)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Set("k", []byte("from-a")))
	val, _, err := a.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "from-a", string(val))

	require.NoError(t, b.Set("k", []byte("from-b")))

	val, found, err := a.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "from-b", string(val))
}

// flakyBackend fails reads once broken is set
type flakyBackend struct {
	*Memory
	broken bool
}

func (f *flakyBackend) Get(key string) ([]byte, bool, error) {
	if f.broken {
		return nil, false, errors.New("database is locked")
	}
	return f.Memory.Get(key)
}

func TestLayered_ServesMemoryCopyWhenDurableUnreadable(t *testing.T) {
	durable := &flakyBackend{Memory: NewMemory()}
	l := NewLayered(NewMemory(), durable)

	require.NoError(t, l.Set("k", []byte("v1")))
	durable.broken = true

	val, found, err := l.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", string(val))

	_, _, err = l.Get("never-set")
	assert.Error(t, err)
}

func TestLayered_DurableFailureLeavesMemoryUntouched(t *testing.T) {
	memory := NewMemory()
	l := NewLayered(memory, failingBackend{err: errors.New("disk full")})

	err := l.Set("k", []byte("v"))
	require.Error(t, err)

	_, found, _ := memory.Get("k")
	assert.False(t, found)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     model.HistoryConfig
		wantErr bool
	}{
		{name: "memory", cfg: model.HistoryConfig{Backend: "memory"}},
		{name: "default is memory", cfg: model.HistoryConfig{}},
		{name: "disk", cfg: model.HistoryConfig{Backend: "disk", Path: t.TempDir()}},
		{name: "disk without path", cfg: model.HistoryConfig{Backend: "disk"}, wantErr: true},
		{name: "sqlite", cfg: model.HistoryConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "a.db")}},
		{name: "layered", cfg: model.HistoryConfig{Backend: "LAYERED", Path: filepath.Join(t.TempDir(), "b.db")}},
		{name: "unknown", cfg: model.HistoryConfig{Backend: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, b.Close())
		})
	}
}
