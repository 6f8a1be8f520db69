package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/deepcheck/internal/history"
	"github.com/ppiankov/deepcheck/internal/kv"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/normalize"
	"github.com/ppiankov/deepcheck/internal/notify"
	"github.com/ppiankov/deepcheck/internal/present"
)

type fixedSource struct{}

func (fixedSource) IntN(n int) int { return 0 }

type fakePreviewer struct {
	preview *model.LinkPreview
	err     error
	calls   []string
}

func (f *fakePreviewer) Fetch(ctx context.Context, rawURL string) (*model.LinkPreview, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.preview
	return &p, nil
}

type fakeExplainer struct {
	summary *model.LLMSummary
	err     error
	got     *model.Display
}

func (f *fakeExplainer) GenerateSummary(ctx context.Context, d model.Display) (*model.LLMSummary, error) {
	f.got = &d
	return f.summary, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(deps Deps) *Pipeline {
	deps.Deriver = normalize.New(fixedSource{})
	deps.Logger = quietLogger()
	return New(deps)
}

func newStore() *history.Store {
	return history.NewStore(kv.NewMemory(), notify.NewBus(4), quietLogger())
}

const untitledURL = `{"contentType":"url","content":"https://news.example/story","source":"Example News","verificationStatus":"verified","trustScore":82}`

func TestInspect_States(t *testing.T) {
	p := newTestPipeline(Deps{})

	assert.Equal(t, present.StateEmpty, p.Inspect(context.Background(), nil).State)
	assert.Equal(t, present.StateEmpty, p.Inspect(context.Background(), []byte("null")).State)
	assert.Equal(t, present.StateError, p.Inspect(context.Background(), []byte("[1,2]")).State)

	v := p.Inspect(context.Background(), []byte(`{"title":"Hello"}`))
	require.Equal(t, present.StateResults, v.State)
	assert.Equal(t, "Hello", v.Display.Title)
}

func TestInspect_FillsMissingTitleFromPreview(t *testing.T) {
	pv := &fakePreviewer{preview: &model.LinkPreview{Title: "Budget vote passes", SiteName: "Example"}}
	p := newTestPipeline(Deps{Previewer: pv})

	v := p.Inspect(context.Background(), []byte(untitledURL))
	require.Equal(t, present.StateResults, v.State)

	assert.Equal(t, []string{"https://news.example/story"}, pv.calls)
	assert.Equal(t, "Budget vote passes", v.Display.Title)
	assert.Equal(t, "Budget vote passes", v.Title)
	require.NotNil(t, v.Display.Preview)
	assert.Equal(t, "Example", v.Display.Preview.SiteName)
	assert.Equal(t, model.CategoryNews, v.Display.Category, "preview must not change classification")
}

func TestInspect_PreviewSkippedWhenTitled(t *testing.T) {
	pv := &fakePreviewer{preview: &model.LinkPreview{Title: "other"}}
	p := newTestPipeline(Deps{Previewer: pv})

	v := p.Inspect(context.Background(), []byte(`{"title":"Mine","content":"https://x.example/a"}`))
	assert.Empty(t, pv.calls)
	assert.Equal(t, "Mine", v.Display.Title)
	assert.Nil(t, v.Display.Preview)

	p.Inspect(context.Background(), []byte(`{"content":"plain text claim"}`))
	assert.Empty(t, pv.calls, "non-URL content is never fetched")
}

func TestInspect_PreviewFailureKeepsFallbackTitle(t *testing.T) {
	pv := &fakePreviewer{err: errors.New("dial tcp: refused")}
	p := newTestPipeline(Deps{Previewer: pv})

	v := p.Inspect(context.Background(), []byte(untitledURL))
	require.Equal(t, present.StateResults, v.State)
	assert.Equal(t, "Analysis Complete", v.Display.Title)
	assert.Nil(t, v.Display.Preview)
}

func TestInspect_ExplanationAttachedAfterDerivation(t *testing.T) {
	ex := &fakeExplainer{summary: &model.LLMSummary{Enabled: true, Provider: "fake", SummaryMD: "text"}}
	p := newTestPipeline(Deps{Explainer: ex})

	v := p.Inspect(context.Background(), []byte(untitledURL))
	require.NotNil(t, ex.got)
	assert.Equal(t, float64(82), ex.got.TrustScore)
	require.NotNil(t, v.Display.LLM)
	assert.Equal(t, "text", v.Display.LLM.SummaryMD)
	assert.True(t, v.Display.Verification.Verified)
}

func TestInspect_ExplanationErrorIgnored(t *testing.T) {
	p := newTestPipeline(Deps{Explainer: &fakeExplainer{err: errors.New("boom")}})

	v := p.Inspect(context.Background(), []byte(untitledURL))
	assert.Equal(t, present.StateResults, v.State)
	assert.Nil(t, v.Display.LLM)
}

func TestIngest_RecordsResults(t *testing.T) {
	store := newStore()
	events, cancel := store.Subscribe()
	defer cancel()

	p := newTestPipeline(Deps{Store: store})

	v, item := p.Ingest(context.Background(), []byte(untitledURL))
	require.Equal(t, present.StateResults, v.State)
	require.NotNil(t, item)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, model.StatusVerified, item.VerificationStatus)
	assert.Equal(t, model.Number(82), item.TrustScore)

	e := <-events
	assert.Equal(t, history.StorageKey, e.Key)

	items := store.Load()
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestIngest_SkipsNonResults(t *testing.T) {
	store := newStore()
	p := newTestPipeline(Deps{Store: store})

	_, item := p.Ingest(context.Background(), []byte("not json"))
	assert.Nil(t, item)
	_, item = p.Ingest(context.Background(), nil)
	assert.Nil(t, item)

	assert.Empty(t, store.Load())
}

func TestIngest_WithoutStore(t *testing.T) {
	p := newTestPipeline(Deps{})

	v, item := p.Ingest(context.Background(), []byte(untitledURL))
	assert.Equal(t, present.StateResults, v.State)
	assert.Nil(t, item)
}

func TestProcessFunc(t *testing.T) {
	store := newStore()
	p := newTestPipeline(Deps{Store: store})

	p.ProcessFunc(false)(context.Background(), []byte(untitledURL))
	assert.Empty(t, store.Load())

	p.ProcessFunc(true)(context.Background(), []byte(untitledURL))
	assert.Len(t, store.Load(), 1)
}

func TestRenderView_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	ex := &fakeExplainer{summary: &model.LLMSummary{Enabled: true, Provider: "fake", Model: "m", SummaryMD: "Plain words."}}
	p := newTestPipeline(Deps{Explainer: ex})
	v := p.Inspect(context.Background(), []byte(`{"title":"Report me","trustScore":30}`))

	var summary bytes.Buffer
	out := Outputs{
		JSONPath:     filepath.Join(dir, "r.json"),
		MarkdownPath: filepath.Join(dir, "r.md"),
		Summary:      &summary,
	}
	require.NoError(t, p.RenderView(v, out))

	md, err := os.ReadFile(out.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Report me")

	llmMD, err := os.ReadFile(filepath.Join(dir, "r.llm.md"))
	require.NoError(t, err)
	assert.Contains(t, string(llmMD), "Plain words.")

	_, err = os.Stat(out.JSONPath)
	assert.NoError(t, err)
	assert.Contains(t, summary.String(), "Report me")
}

func TestRenderView_BadPath(t *testing.T) {
	p := newTestPipeline(Deps{})
	err := p.RenderView(present.Empty(), Outputs{JSONPath: filepath.Join(t.TempDir(), "missing", "r.json")})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	p := FromConfig(cfg, nil, quietLogger())
	assert.Nil(t, p.previewer)
	assert.Nil(t, p.explainer)

	cfg.Preview.Enabled = true
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "mistral"
	p = FromConfig(cfg, nil, quietLogger())
	assert.NotNil(t, p.previewer)
	assert.NotNil(t, p.explainer)

	cfg.LLM.Provider = "unknown"
	p = FromConfig(cfg, nil, quietLogger())
	assert.Nil(t, p.explainer, "a broken provider config disables explanations")
}

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		n     int
		want  string
	}{
		{"Budget Vote: Passes!", 3, "0003-budget-vote-passes"},
		{"  ../../etc/passwd ", 1, "0001-etc-passwd"},
		{"", 12, "0012-result"},
		{"???", 7, "0007-result"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.title, tt.n), tt.title)
	}
}
