// Package llm produces optional plain-language explanations of a verdict.
// Explanations are generated after derivation and never change the
// classification, scores or band.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/deepcheck/internal/model"
)

const systemPrompt = "You are a helpful assistant that explains content-verification results to non-experts with strict adherence to the provided facts."

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates an explanation of the verdict with strict evidence mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for an explanation
type SummarizeRequest struct {
	// Display is the derived verdict to explain
	Display model.Display

	// EvidenceURLs is the STRICT allowlist of URLs the LLM can cite
	EvidenceURLs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string // URLs the LLM actually cited
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	Model   string
	APIKey  string // OpenAI/Anthropic
	BaseURL string // Custom endpoints, e.g. Ollama

	Timeout int // seconds

	// StrictEvidence enforces the URL allowlist (should always be true)
	StrictEvidence bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      600,
	}
}

// BuildPrompt constructs the default prompt for explaining a verdict
func BuildPrompt(d model.Display, evidenceURLs []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are explaining the result of an automated content-verification check to a non-expert reader.
The verdict below was produced by an analysis engine. You MUST NOT change, question or re-score it.

CRITICAL RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. DO NOT infer, speculate, or cite external sources beyond this list.
3. Only restate facts given below. If something is unknown, say so.
4. Values marked "estimated" were not reported by the engine; say that they are placeholders.
5. Never claim the content is definitely true or definitely false.

Result:
- Title: %s
- Content type: %s (%s)
- Verdict: %s
- Trust score: %s
- Confidence: %s
- Band: %s (%s)
- Risk level: %s
- Source type: %s
`, joinURLs(evidenceURLs), d.Title, d.Kind, d.Category, d.Verification.Badge,
		scoreLine(d.TrustScore, d.TrustScoreEstimated),
		scoreLine(d.Confidence, d.ConfidenceEstimated),
		d.Band, d.Band.Range(), d.Verification.RiskLevel, d.SourceType)

	if d.Narrative.Primary != "" {
		fmt.Fprintf(&sb, "- Engine reasoning: %s\n", d.Narrative.Primary)
	}

	if len(d.Narrative.Bullets) > 0 {
		sb.WriteString("\nIndicators:\n")
		for i, b := range d.Narrative.Bullets {
			if i >= 8 {
				break
			}
			fmt.Fprintf(&sb, "- %s\n", b)
		}
	}

	sb.WriteString("\nWrite 3-4 sentences explaining what this result means and what the reader should do next.")

	return sb.String()
}

func scoreLine(v float64, estimated bool) string {
	if estimated {
		return fmt.Sprintf("%.0f/100 (estimated)", v)
	}
	return fmt.Sprintf("%.0f/100", v)
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No evidence URLs available)"
	}
	var sb strings.Builder
	for i, url := range urls {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			fmt.Fprintf(&sb, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&sb, "\n- %s", url)
	}
	return sb.String()
}

// EvidenceURLs returns the URLs an explanation of d may cite
func EvidenceURLs(d model.Display) []string {
	var urls []string
	if d.OriginalURL != "" {
		urls = append(urls, d.OriginalURL)
	}
	if d.Preview != nil && d.Preview.FinalURL != "" && d.Preview.FinalURL != d.OriginalURL {
		urls = append(urls, d.Preview.FinalURL)
	}
	return urls
}

func logger() *slog.Logger {
	return slog.Default().With("system", "llm")
}
