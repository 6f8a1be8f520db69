package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/pipeline"
	"github.com/ppiankov/deepcheck/internal/present"
)

var (
	outJSON        string
	outMD          string
	inspectTimeout time.Duration
	record         bool
	noFooter       bool
	previewEnabled bool
	llmProvider    string
	llmModel       string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show the verdict for one analysis result",
	Long: `Inspect reads one AnalysisResult JSON object from a file (or stdin when
the file is omitted or "-"), derives the verdict and prints a summary.

Examples:
  deepcheck inspect result.json
  engine analyze post.txt | deepcheck inspect --record
  deepcheck inspect result.json --json out.json --md out.md --llm-provider ollama --llm-model mistral`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&outJSON, "json", "", "write the view as JSON to this path")
	inspectCmd.Flags().StringVar(&outMD, "md", "", "write the Markdown report to this path")
	inspectCmd.Flags().DurationVar(&inspectTimeout, "timeout", 60*time.Second, "timeout for enrichment lookups")
	addPipelineFlags(inspectCmd)
}

// addPipelineFlags registers the flags shared by inspect and batch
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&record, "record", false, "record results in the history log")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().BoolVar(&previewEnabled, "preview", false, "look up titles for untitled URL content")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for explanations (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// applyPipelineFlags overlays explicitly set flags on cfg
func applyPipelineFlags(cmd *cobra.Command, cfg *model.Config) {
	if cmd.Flags().Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if cmd.Flags().Changed("preview") {
		cfg.Preview.Enabled = previewEnabled
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	applyPipelineFlags(cmd, a.cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), inspectTimeout)
	defer cancel()

	p := pipeline.FromConfig(a.cfg, a.store, a.log)

	var v present.View
	if record {
		var item *model.HistoryItem
		v, item = p.Ingest(ctx, raw)
		if item != nil {
			a.log.Info("recorded history item", "id", item.ID)
		}
	} else {
		v = p.Inspect(ctx, raw)
	}

	if err := p.RenderView(v, pipeline.Outputs{
		JSONPath:     outJSON,
		MarkdownPath: outMD,
		Summary:      cmd.OutOrStdout(),
	}); err != nil {
		return err
	}

	if v.State == present.StateError {
		return fmt.Errorf("inspect: %s", v.Error)
	}
	return nil
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
