package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/deepcheck/internal/kv"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/notify"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tickingClock advances one millisecond per call
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newTestStore(t *testing.T, backend Backend) (*Store, *tickingClock) {
	t.Helper()
	clock := &tickingClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(backend, notify.NewBus(8), quietLogger())
	s.now = clock.Now
	return s, clock
}

func sample(title string) model.HistoryItem {
	return model.HistoryItem{
		Title:              title,
		Content:            "u",
		ContentType:        "url",
		Type:               model.KindNews,
		VerificationStatus: model.StatusVerified,
		TrustScore:         85,
		Confidence:         90,
	}
}

func TestLoad_MissingIsEmpty(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())

	items := s.Load()
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestLoad_CorruptIsEmpty(t *testing.T) {
	for _, raw := range []string{`{not json`, `{"id":"x"}`, `42`, `null`, ``} {
		backend := kv.NewMemory()
		require.NoError(t, backend.Set(StorageKey, []byte(raw)))
		s, _ := newTestStore(t, backend)

		assert.Empty(t, s.Load(), "raw %q", raw)
	}
}

type brokenBackend struct{}

func (brokenBackend) Get(string) ([]byte, bool, error) { return nil, false, errors.New("quota exceeded") }
func (brokenBackend) Set(string, []byte) error         { return errors.New("quota exceeded") }

func TestStorageUnavailable_Degrades(t *testing.T) {
	s, _ := newTestStore(t, brokenBackend{})
	events, cancel := s.Subscribe()
	defer cancel()

	assert.Empty(t, s.Load())

	item := s.Append(sample("A"))
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "A", item.Title)

	// The event still carries the list the store tried to write
	e := <-events
	var list []model.HistoryItem
	require.NoError(t, json.Unmarshal([]byte(e.NewValue), &list))
	require.Len(t, list, 1)
	assert.Equal(t, item.ID, list[0].ID)
}

func TestAppend_ScenarioSingleItem(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())

	item := s.Append(model.HistoryItem{
		Title:              "A",
		Content:            "u",
		ContentType:        "url",
		Type:               model.KindNews,
		VerificationStatus: model.StatusVerified,
		TrustScore:         85,
		Confidence:         90,
	})

	assert.Equal(t, model.StatusVerified, item.VerificationStatus)
	assert.Equal(t, model.Number(85), item.TrustScore)

	items := s.Load()
	require.Len(t, items, 1)
	assert.Equal(t, item, items[0])
}

func TestAppend_AssignsIdentity(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())

	in := sample("A")
	in.ID = "caller-id"
	in.Timestamp = "1999-01-01T00:00:00Z"

	item := s.Append(in)

	assert.NotEqual(t, "caller-id", item.ID)
	assert.Equal(t, "2026-03-01T12:00:00.001Z", item.Timestamp)

	millis := strconv.FormatInt(time.Date(2026, 3, 1, 12, 0, 0, 1e6, time.UTC).UnixMilli(), 10)
	require.Len(t, item.ID, len(millis)+idSuffixLen)
	assert.Equal(t, millis, item.ID[:len(millis)])
	assert.Regexp(t, `^[0-9a-z]{9}$`, item.ID[len(millis):])

	_, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	assert.NoError(t, err)
}

func TestAppend_CapAndOrder(t *testing.T) {
	const n = 130
	s, _ := newTestStore(t, kv.NewMemory())

	for i := 0; i < n; i++ {
		s.Append(sample(fmt.Sprintf("item-%d", i)))
	}

	items := s.Load()
	require.Len(t, items, MaxItems)
	assert.Equal(t, fmt.Sprintf("item-%d", n-1), items[0].Title)
	assert.Equal(t, fmt.Sprintf("item-%d", n-MaxItems), items[MaxItems-1].Title)

	for i := 1; i < len(items); i++ {
		assert.Greater(t, items[i-1].Timestamp, items[i].Timestamp, "not newest first at %d", i)
	}
}

func TestAppend_BelowCapKeepsEverything(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	for i := 0; i < 7; i++ {
		s.Append(sample(fmt.Sprintf("item-%d", i)))
	}
	assert.Len(t, s.Load(), 7)
}

func TestLoad_Idempotent(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	s.Append(sample("A"))
	s.Append(sample("B"))

	assert.Equal(t, s.Load(), s.Load())
}

func TestAppend_PublishesChange(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	events, cancel := s.Subscribe()
	defer cancel()

	item := s.Append(sample("A"))

	e := <-events
	assert.Equal(t, StorageKey, e.Key)
	assert.Empty(t, e.Origin)

	raw, found := s.Raw()
	require.True(t, found)
	assert.Equal(t, raw, e.NewValue)
	assert.Contains(t, e.NewValue, item.ID)
}

func TestAppend_ConcurrentAppendsAreSerialized(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(sample(fmt.Sprintf("item-%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Load(), 20)
}

func TestLoad_ReadsExistingDashboardData(t *testing.T) {
	backend := kv.NewMemory()
	existing := `[{"id":"1717171717171abc123xyz","title":"Old","content":"https://example.com","contentType":"url","type":"news","verificationStatus":"suspicious","trustScore":42,"confidence":80,"timestamp":"2024-05-31T16:08:37.171Z","riskAssessment":{"overallRisk":"Medium","details":"mixed"}}]`
	require.NoError(t, backend.Set(StorageKey, []byte(existing)))

	s, _ := newTestStore(t, backend)
	s.Append(sample("New"))

	items := s.Load()
	require.Len(t, items, 2)
	assert.Equal(t, "New", items[0].Title)
	assert.Equal(t, "Old", items[1].Title)
	require.NotNil(t, items[1].RiskAssessment)
	assert.Equal(t, model.RiskMedium, items[1].RiskAssessment.OverallRisk)
}

func TestLoad_KeepsLegacyStringScores(t *testing.T) {
	backend := kv.NewMemory()
	legacy := `[{"id":"1","title":"good"},{"id":"2","title":"legacy","trustScore":"85","confidence":"70"}]`
	require.NoError(t, backend.Set(StorageKey, []byte(legacy)))

	s, _ := newTestStore(t, backend)
	items := s.Load()
	require.Len(t, items, 2)
	assert.Equal(t, model.Number(85), items[1].TrustScore)
	assert.Equal(t, model.Number(70), items[1].Confidence)

	s.Append(sample("New"))
	items = s.Load()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"New", "good", "legacy"}, []string{items[0].Title, items[1].Title, items[2].Title})
}

func TestAppend_StoresSharingSQLiteKeepEveryEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	open := func() *Store {
		durable, err := kv.OpenSQLite(path)
		require.NoError(t, err)
		backend := kv.NewLayered(kv.NewMemory(), durable)
		t.Cleanup(func() { _ = backend.Close() })
		s, _ := newTestStore(t, backend)
		return s
	}
	a, b := open(), open()

	a.Append(sample("A1"))
	b.Append(sample("B1"))
	require.Len(t, a.Load(), 2)
	a.Append(sample("A2"))

	titles := func(items []model.HistoryItem) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Title
		}
		return out
	}
	assert.Equal(t, []string{"A2", "B1", "A1"}, titles(a.Load()))
	assert.Equal(t, []string{"A2", "B1", "A1"}, titles(b.Load()))
}

func TestEntryFromResult(t *testing.T) {
	r := &model.AnalysisResult{
		Content:   "https://example.com/post",
		Platform:  "TikTok",
		Reasoning: &model.Reasoning{Primary: "p"},
	}
	d := model.Display{
		Title:        "Analysis Complete",
		Kind:         "Content",
		TrustScore:   72,
		Confidence:   88,
		Band:         model.BandMostlyReliable,
		Verification: model.Verification{Verified: true, RiskLevel: model.RiskLow},
	}

	item := EntryFromResult(r, d)

	assert.Empty(t, item.ID)
	assert.Equal(t, "Analysis Complete", item.Title)
	assert.Equal(t, "Content", item.ContentType)
	assert.Equal(t, model.KindUpload, item.Type)
	assert.Equal(t, model.StatusVerified, item.VerificationStatus)
	assert.Equal(t, model.Number(72), item.TrustScore)
	require.NotNil(t, item.RiskAssessment)
	assert.Equal(t, model.RiskLow, item.RiskAssessment.OverallRisk)
	assert.Equal(t, "Mostly Reliable (60-79%)", item.RiskAssessment.Details)
	assert.Same(t, r.Reasoning, item.Reasoning)
}

func TestTestEntry(t *testing.T) {
	item := TestEntry(time.Date(2026, 1, 2, 9, 30, 5, 0, time.UTC))

	assert.Equal(t, "Test Item - 09:30:05", item.Title)
	assert.Equal(t, "https://example.com/test", item.Content)
	assert.Equal(t, model.KindNews, item.Type)
	assert.Equal(t, model.Number(85), item.TrustScore)
	assert.Equal(t, model.Number(90), item.Confidence)
}
