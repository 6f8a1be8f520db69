package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/deepcheck/internal/model"
)

// Summarizer generates explanations through the configured provider
type Summarizer struct {
	provider Provider // nil when disabled
	config   Config
}

// NewSummarizer creates a summarizer. An empty provider name disables it.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary explains d. Provider failures are reported as warnings on
// the returned summary, not as errors.
func (s *Summarizer) GenerateSummary(ctx context.Context, d model.Display) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Enabled:        true,
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictEvidence: s.config.StrictEvidence,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return summary, nil
	}

	evidence := EvidenceURLs(d)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Display:      d,
		EvidenceURLs: evidence,
		Model:        s.config.Model,
		MaxTokens:    s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM explanation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings,
		fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		fmt.Sprintf("Verified %d citations against %d allowed URLs", len(resp.CitedURLs), len(evidence)),
	)

	return summary, nil
}

// RenderSeparateMarkdown renders an explanation as its own Markdown file,
// kept apart from the report so generated text is never mistaken for it
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# LLM Summary\n\n")
	sb.WriteString("> **GENERATED CONTENT** - written by a language model from the result below.\n")
	sb.WriteString("> The verdict, scores and band were determined independently of this text.\n\n")

	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Provider | %s |\n", summary.Provider)
	fmt.Fprintf(&sb, "| Model | %s |\n", summary.Model)
	fmt.Fprintf(&sb, "| Strict Evidence Mode | %t |\n\n", summary.StrictEvidence)

	if summary.SummaryMD == "" {
		sb.WriteString("_No summary generated._\n\n")
	} else {
		sb.WriteString(summary.SummaryMD)
		sb.WriteString("\n\n")
	}

	if len(summary.Warnings) > 0 {
		sb.WriteString("## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}

	return sb.String()
}
