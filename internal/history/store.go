// Package history keeps the capped, newest-first log of past analyses.
//
// The whole log lives under one key as a single JSON array so that data
// written by earlier dashboard versions stays readable.
package history

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/notify"
)

const (
	// StorageKey is the key the log is stored under
	StorageKey = "deepcheck_analysis_history"

	// MaxItems is the number of entries kept; older ones are evicted
	MaxItems = 100

	idSuffixLen   = 9
	idAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	timestampForm = "2006-01-02T15:04:05.000Z07:00"
)

// Backend is the key-value storage the log is persisted in
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Random supplies the random part of entry ids
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// Store reads and appends history entries. Appends within one process are
// serialized; concurrent writers in other processes are last-writer-wins.
type Store struct {
	backend Backend
	bus     *notify.Bus
	logger  *slog.Logger
	now     func() time.Time
	random  Random
	mu      sync.Mutex
}

// NewStore creates a store over backend. A nil bus gets a private one.
func NewStore(backend Backend, bus *notify.Bus, logger *slog.Logger) *Store {
	if bus == nil {
		bus = notify.NewBus(16)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		bus:     bus,
		logger:  logger.With("system", "history"),
		now:     time.Now,
		random:  globalRandom{},
	}
}

// Load returns the persisted log, newest first. Missing, unreadable or
// corrupt data yields an empty log; the failure is logged, never returned.
func (s *Store) Load() []model.HistoryItem {
	raw, found, err := s.backend.Get(StorageKey)
	if err != nil {
		s.logger.Error("load history: storage unavailable", "error", err)
		return []model.HistoryItem{}
	}
	if !found {
		return []model.HistoryItem{}
	}
	return s.decode(raw)
}

// Raw returns the persisted blob as stored, for debugging
func (s *Store) Raw() (string, bool) {
	raw, found, err := s.backend.Get(StorageKey)
	if err != nil {
		s.logger.Error("read raw history", "error", err)
		return "", false
	}
	return string(raw), found
}

func (s *Store) decode(raw []byte) []model.HistoryItem {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []model.HistoryItem{}
	}

	var items []model.HistoryItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		s.logger.Error("load history: corrupt data", "error", err, "bytes", len(raw))
		return []model.HistoryItem{}
	}
	if items == nil {
		items = []model.HistoryItem{}
	}
	return items
}

// Append records a new entry. Any id or timestamp on item is replaced.
// The entry is prepended, the log truncated to MaxItems, persisted and
// announced to subscribers. A failed write is logged and otherwise ignored.
func (s *Store) Append(item model.HistoryItem) model.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item.ID = s.newID(now)
	item.Timestamp = now.UTC().Format(timestampForm)

	current := s.Load()
	updated := make([]model.HistoryItem, 0, min(len(current)+1, MaxItems))
	updated = append(updated, item)
	updated = append(updated, current...)
	if len(updated) > MaxItems {
		updated = updated[:MaxItems]
	}

	payload, err := json.Marshal(updated)
	if err != nil {
		s.logger.Error("encode history", "error", err)
		return item
	}

	if err := s.backend.Set(StorageKey, payload); err != nil {
		s.logger.Error("save history: storage unavailable", "error", err)
	} else {
		s.logger.Debug("history updated", "id", item.ID, "items", len(updated))
	}

	s.bus.Publish(notify.Event{Key: StorageKey, NewValue: string(payload)})
	return item
}

// Subscribe returns a channel of change events and a cancel function
func (s *Store) Subscribe() (<-chan notify.Event, func()) {
	return s.bus.Subscribe()
}

// newID is the Unix millisecond time followed by a random base-36 suffix.
// Ids are unique enough to tell entries apart, not guaranteed unique.
func (s *Store) newID(now time.Time) string {
	suffix := make([]byte, idSuffixLen)
	for i := range suffix {
		suffix[i] = idAlphabet[s.random.IntN(len(idAlphabet))]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + string(suffix)
}
