// Package pipeline runs an analysis result through derivation, optional
// enrichment, history recording and rendering.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ppiankov/deepcheck/internal/history"
	"github.com/ppiankov/deepcheck/internal/llm"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/normalize"
	"github.com/ppiankov/deepcheck/internal/present"
	"github.com/ppiankov/deepcheck/internal/preview"
	"github.com/ppiankov/deepcheck/internal/worker"
)

// Previewer fetches link metadata
type Previewer interface {
	Fetch(ctx context.Context, rawURL string) (*model.LinkPreview, error)
}

// Explainer writes a plain-language explanation of a display model
type Explainer interface {
	GenerateSummary(ctx context.Context, d model.Display) (*model.LLMSummary, error)
}

// Deps are the collaborators of a pipeline. Previewer, Explainer and Store
// are optional.
type Deps struct {
	Deriver   present.Deriver
	Previewer Previewer
	Explainer Explainer
	Store     *history.Store
	Renderer  *present.Renderer
	Logger    *slog.Logger
}

// Pipeline orchestrates the handling of one analysis result
type Pipeline struct {
	builder   *present.Builder
	previewer Previewer
	explainer Explainer
	store     *history.Store
	renderer  *present.Renderer
	logger    *slog.Logger
}

// New creates a pipeline from explicit collaborators
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deriver := deps.Deriver
	if deriver == nil {
		deriver = normalize.New(nil)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = present.NewRenderer(true)
	}

	return &Pipeline{
		builder:   present.NewBuilder(deriver, logger),
		previewer: deps.Previewer,
		explainer: deps.Explainer,
		store:     deps.Store,
		renderer:  renderer,
		logger:    logger.With("system", "pipeline"),
	}
}

// FromConfig creates a pipeline with the enrichments enabled in cfg.
// store may be nil, in which case nothing is recorded.
func FromConfig(cfg *model.Config, store *history.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	deps := Deps{
		Store:    store,
		Renderer: present.NewRenderer(cfg.Output.IncludeFooter),
		Logger:   logger,
	}

	if cfg.Preview.Enabled {
		limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
		deps.Previewer = preview.NewFetcher(cfg.HTTP, cfg.Preview, limiter)
	}

	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			logger.Warn("LLM provider disabled", "provider", cfg.LLM.Provider, "error", err)
		} else {
			deps.Explainer = s
		}
	}

	return New(deps)
}

// Inspect builds the view of a raw payload and applies the enrichments.
// Enrichment failures are logged and leave the view as derived.
func (p *Pipeline) Inspect(ctx context.Context, raw []byte) present.View {
	v := p.builder.Build(raw)
	if v.State != present.StateResults {
		return v
	}

	p.fillPreview(ctx, &v)
	p.explain(ctx, &v)
	return v
}

// Ingest inspects a payload and, when it yields results, records the
// history entry. The recorded item is nil when nothing was recorded.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) (present.View, *model.HistoryItem) {
	v := p.Inspect(ctx, raw)
	if v.State != present.StateResults || p.store == nil {
		return v, nil
	}

	item := p.store.Append(history.EntryFromResult(v.Raw, *v.Display))
	return v, &item
}

// ProcessFunc adapts the pipeline for batch processing
func (p *Pipeline) ProcessFunc(record bool) worker.ProcessFunc {
	return func(ctx context.Context, raw []byte) present.View {
		if record {
			v, _ := p.Ingest(ctx, raw)
			return v
		}
		return p.Inspect(ctx, raw)
	}
}

// fillPreview looks up a title for URL content that arrived without one.
// Classification is derived from source and content, never from the
// preview, so only the title and preview fields change.
func (p *Pipeline) fillPreview(ctx context.Context, v *present.View) {
	d := v.Display
	if p.previewer == nil || d.OriginalURL == "" {
		return
	}
	if v.Raw != nil && v.Raw.Title != "" {
		return
	}

	pv, err := p.previewer.Fetch(ctx, d.OriginalURL)
	if err != nil {
		p.logger.Debug("preview unavailable", "url", d.OriginalURL, "error", err)
		return
	}

	d.Preview = pv
	if pv.Title != "" {
		d.Title = pv.Title
		v.Title = pv.Title
	}
}

func (p *Pipeline) explain(ctx context.Context, v *present.View) {
	if p.explainer == nil {
		return
	}

	summary, err := p.explainer.GenerateSummary(ctx, *v.Display)
	if err != nil {
		p.logger.Warn("explanation failed", "error", err)
		return
	}
	v.Display.LLM = summary
}

// Outputs names the files a view is rendered to. Empty paths are skipped.
type Outputs struct {
	JSONPath     string
	MarkdownPath string
	Summary      io.Writer // Terminal summary, nil to skip
}

// RenderView writes the view to the requested outputs. The explanation, when
// present, goes to a separate <name>.llm.md next to the Markdown report.
func (p *Pipeline) RenderView(v present.View, out Outputs) error {
	if out.JSONPath != "" {
		if err := p.renderer.RenderJSON(v, out.JSONPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.logger.Debug("wrote JSON", "path", out.JSONPath)
	}

	if out.MarkdownPath != "" {
		if err := p.renderer.RenderMarkdown(v, out.MarkdownPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.logger.Debug("wrote Markdown", "path", out.MarkdownPath)

		if v.Display != nil && v.Display.LLM != nil && v.Display.LLM.Enabled {
			llmPath := strings.TrimSuffix(out.MarkdownPath, ".md") + ".llm.md"
			if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(v.Display.LLM), llmPath); err != nil {
				p.logger.Warn("failed to write LLM summary", "path", llmPath, "error", err)
			} else {
				p.logger.Debug("wrote LLM summary", "path", llmPath)
			}
		}
	}

	if out.Summary != nil {
		p.renderer.RenderSummary(out.Summary, v)
	}
	return nil
}
