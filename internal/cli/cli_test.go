package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/deepcheck/internal/history"
	"github.com/ppiankov/deepcheck/internal/kv"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/notify"
)

func TestConfig_Defaults(t *testing.T) {
	for _, key := range []string{"DEEPCHECK_LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEEPCHECK_LLM_BASE_URL", "OLLAMA_BASE_URL"} {
		t.Setenv(key, "")
	}

	v := viper.New()
	configureViper(v)

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DEEPCHECK_HISTORY_BACKEND", "disk")
	t.Setenv("DEEPCHECK_HISTORY_PATH", "/var/lib/deepcheck")
	t.Setenv("DEEPCHECK_SERVER_READ_TIMEOUT", "3s")
	t.Setenv("DEEPCHECK_NOTIFY_BROKERS", "broker-a:9092,broker-b:9092")
	t.Setenv("DEEPCHECK_RATE_LIMITING_BURST_SIZE", "2")
	t.Setenv("DEEPCHECK_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	configureViper(v)

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "disk", cfg.History.Backend)
	assert.Equal(t, "/var/lib/deepcheck", cfg.History.Path)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, cfg.Notify.Brokers)
	assert.Equal(t, 2, cfg.RateLimiting.BurstSize)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestConfig_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path, false))

	err := writeDefaultConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, writeDefaultConfig(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# deepcheck configuration")
	assert.NotContains(t, string(data), "api_key")

	v := viper.New()
	configureViper(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().Server, cfg.Server)
	assert.Equal(t, model.DefaultConfig().History, cfg.History)
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistoryTable(&buf, nil))
	assert.Equal(t, "No history yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, writeHistoryTable(&buf, []model.HistoryItem{{
		Title:              "Budget vote",
		Type:               model.KindNews,
		VerificationStatus: model.StatusVerified,
		TrustScore:         85,
		Confidence:         90,
		Timestamp:          "2026-03-01T12:00:00.000Z",
	}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "TIMESTAMP"))
	assert.Contains(t, lines[1], "Budget vote")
	assert.Contains(t, lines[1], "85")
}

func TestPrintChange(t *testing.T) {
	var buf bytes.Buffer
	printChange(&buf, notify.Event{Key: history.StorageKey, NewValue: `[{"title":"Newest"},{"title":"Older"}]`})
	assert.Contains(t, buf.String(), `items=2  newest="Newest"  origin=local`)

	buf.Reset()
	printChange(&buf, notify.Event{Key: history.StorageKey, NewValue: "{", Origin: "remote"})
	assert.Contains(t, buf.String(), "unreadable value")
}

func TestPollHistory_PublishesChanges(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := kv.NewDisk(t.TempDir())

	// Two stores over one directory stand in for two processes
	writer := history.NewStore(backend, notify.NewBus(4), log)
	watchBus := notify.NewBus(4)
	watcher := history.NewStore(backend, watchBus, log)

	events, cancel := watchBus.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pollHistory(ctx, watcher, watchBus, 10*time.Millisecond) }()

	// Let the poller record the initial (missing) value first
	time.Sleep(50 * time.Millisecond)
	item := writer.Append(history.TestEntry(time.Now()))

	select {
	case e := <-events:
		assert.Equal(t, "poll", e.Origin)
		var items []model.HistoryItem
		require.NoError(t, json.Unmarshal([]byte(e.NewValue), &items))
		require.Len(t, items, 1)
		assert.Equal(t, item.ID, items[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}

	stop()
	assert.NoError(t, <-done)
}

func TestReadInput(t *testing.T) {
	data, err := readInput(strings.NewReader(`{"title":"stdin"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"stdin"}`, string(data))

	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"file"}`), 0644))
	data, err = readInput(nil, []string{path})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"file"}`, string(data))

	_, err = readInput(nil, []string{filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}
