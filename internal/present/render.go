package present

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/deepcheck/internal/model"
)

// Renderer writes views as report files and terminal summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the view as indented JSON
func (r *Renderer) RenderJSON(v View, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// RenderMarkdown writes the view as a Markdown report
func (r *Renderer) RenderMarkdown(v View, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(v)), 0644)
}

// RenderLLMMarkdown writes an already rendered LLM explanation
func (r *Renderer) RenderLLMMarkdown(markdown string, path string) error {
	return os.WriteFile(path, []byte(markdown), 0644)
}

// Markdown renders the downloadable report
func (r *Renderer) Markdown(v View) string {
	var sb strings.Builder

	switch v.State {
	case StateEmpty:
		fmt.Fprintf(&sb, "# %s\n\n%s\n", v.Title, v.Message)
		return sb.String()
	case StateError:
		fmt.Fprintf(&sb, "# %s\n\n%s\n\nError: %s\n", v.Title, v.Message, v.Error)
		return sb.String()
	}

	d := v.Display
	fmt.Fprintf(&sb, "# %s\n\n", d.Title)
	fmt.Fprintf(&sb, "**%s**\n\n", d.Verification.Badge)

	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Content | %s (%s) |\n", d.Kind, d.Category)
	fmt.Fprintf(&sb, "| Source | %s |\n", d.SourceLabel)
	fmt.Fprintf(&sb, "| Status | %s |\n", d.Verification.Status)
	fmt.Fprintf(&sb, "| Trust score | %s |\n", scoreCell(d.TrustScore, d.TrustScoreEstimated))
	fmt.Fprintf(&sb, "| Confidence | %s |\n", scoreCell(d.Confidence, d.ConfidenceEstimated))
	fmt.Fprintf(&sb, "| Band | %s (%s) |\n", d.Band, d.Band.Range())
	fmt.Fprintf(&sb, "| Risk level | %s |\n", d.Verification.RiskLevel)
	fmt.Fprintf(&sb, "| Source type | %s |\n", d.SourceType)
	if d.Timestamp != "" {
		fmt.Fprintf(&sb, "| Analyzed | %s |\n", d.Timestamp)
	}
	if d.Preview != nil {
		fmt.Fprintf(&sb, "| Linked page | %s |\n", orDash(d.Preview.SiteName))
		if d.Preview.Authority != "" {
			fmt.Fprintf(&sb, "| Host authority | %s |\n", d.Preview.Authority)
		}
	}
	sb.WriteString("\n")

	if d.TrustScoreEstimated || d.ConfidenceEstimated {
		sb.WriteString("> Scores marked *estimated* were not reported by the analysis engine.\n\n")
	}

	fmt.Fprintf(&sb, "## %s\n\n", d.Narrative.Heading)
	if d.Narrative.Primary != "" {
		fmt.Fprintf(&sb, "%s\n\n", d.Narrative.Primary)
	}
	fmt.Fprintf(&sb, "%s\n\n", d.Narrative.Intro)
	writeList(&sb, d.Narrative.Bullets)

	sb.WriteString("## How We Cross-Checked This Content\n\n")
	for _, s := range d.Narrative.CrossCheck {
		fmt.Fprintf(&sb, "### %s\n\n", s.Heading)
		writeList(&sb, s.Bullets)
	}

	sb.WriteString("## Analysis Metrics\n\n")
	for _, bar := range d.Charts.Metrics {
		fmt.Fprintf(&sb, "- %s: %s\n", bar.Name, scoreCell(bar.Value, bar.Estimated))
	}
	sb.WriteString("\n")

	if d.SocialMetrics != nil {
		sb.WriteString("## Social Impact\n\n")
		fmt.Fprintf(&sb, "- Engagement rate: %s\n", orDash(string(d.SocialMetrics.EngagementRate)))
		fmt.Fprintf(&sb, "- Share velocity: %s\n", orDash(string(d.SocialMetrics.ShareVelocity)))
		fmt.Fprintf(&sb, "- Virality score: %s\n\n", orDash(string(d.SocialMetrics.ViralityScore)))
	}

	if d.CrossChecking != nil {
		sb.WriteString("## Cross-Verification\n\n")
		fmt.Fprintf(&sb, "- Sources checked: %s\n", numberOrDash(d.CrossChecking.SourcesChecked))
		fmt.Fprintf(&sb, "- Matches found: %s\n", numberOrDash(d.CrossChecking.MatchesFound))
		fmt.Fprintf(&sb, "- Contradictions: %s\n", numberOrDash(d.CrossChecking.Contradictions))
		fmt.Fprintf(&sb, "- Fact-checker consensus: %s\n\n", orDash(d.CrossChecking.FactCheckerConsensus))
	}

	sb.WriteString("## What This Means for You\n\n")
	writeList(&sb, d.Narrative.Advice)

	if d.OriginalURL != "" {
		fmt.Fprintf(&sb, "[View Original](%s)\n\n", d.OriginalURL)
	}

	if r.includeFooter {
		sb.WriteString("---\n\n")
		sb.WriteString("*Generated by deepcheck. Scores are produced by the analysis engine; deepcheck only presents them.*\n")
	}

	return sb.String()
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(w io.Writer, v View) {
	switch v.State {
	case StateEmpty:
		fmt.Fprintf(w, "%s\n", v.Title)
		return
	case StateError:
		fmt.Fprintf(w, "%s: %s\n", v.Title, v.Error)
		return
	}

	d := v.Display
	fmt.Fprintf(w, "%s\n", d.Title)
	fmt.Fprintf(w, "  %s\n", d.Verification.Badge)
	fmt.Fprintf(w, "  Trust score: %s  Confidence: %s\n",
		scoreCell(d.TrustScore, d.TrustScoreEstimated),
		scoreCell(d.Confidence, d.ConfidenceEstimated))
	fmt.Fprintf(w, "  Band: %s  Risk: %s  Category: %s\n", d.Band, d.Verification.RiskLevel, d.Category)
	if d.LLM != nil && d.LLM.Enabled {
		fmt.Fprintf(w, "  Explanation: %s/%s\n", d.LLM.Provider, d.LLM.Model)
	}
}

func writeList(sb *strings.Builder, items []string) {
	if len(items) == 0 {
		return
	}
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

func scoreCell(v float64, estimated bool) string {
	s := fmt.Sprintf("%.0f%%", v)
	if estimated {
		s += " (estimated)"
	}
	return s
}

func numberOrDash(n *model.Number) string {
	if v, ok := n.Float(); ok {
		return fmt.Sprintf("%g", v)
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
