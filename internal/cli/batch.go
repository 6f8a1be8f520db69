package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deepcheck/internal/pipeline"
	"github.com/ppiankov/deepcheck/internal/present"
	"github.com/ppiankov/deepcheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Render many analysis results from a JSON Lines file in parallel",
	Long: `Batch processes one AnalysisResult JSON object per line:
- Blank lines and lines starting with # are skipped
- Results are derived concurrently with a worker pool
- A JSON view and a Markdown report are written per line
- With --record, every result is appended to the history log

Example:
  deepcheck batch results.jsonl
  deepcheck batch results.jsonl --concurrency 8 --output-dir ./reports --record`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./deepcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	addPipelineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	applyPipelineFlags(cmd, a.cfg)

	if !cmd.Flags().Changed("concurrency") && a.cfg.Concurrency.Workers > 0 {
		concurrency = a.cfg.Concurrency.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  deepcheck batch\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Record:       %t\n", record)
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.FromConfig(a.cfg, a.store, a.log)
	processor := worker.NewBatchProcessor(p.ProcessFunc(record), concurrency)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var rendered, failed, empty int
	for _, result := range results {
		v := result.View
		switch {
		case v.State == present.StateEmpty:
			empty++
			fmt.Fprintf(stderr, "- line %d: no result\n", result.Line)
			continue
		case result.Error != nil:
			failed++
			fmt.Fprintf(stderr, "✗ line %d: %v\n", result.Line, result.Error)
			continue
		}

		slug := pipeline.Slug(v.Title, result.Line)
		out := pipeline.Outputs{
			JSONPath:     filepath.Join(outputDir, slug+".json"),
			MarkdownPath: filepath.Join(outputDir, slug+".md"),
		}
		if err := p.RenderView(v, out); err != nil {
			failed++
			fmt.Fprintf(stderr, "✗ line %d: %v\n", result.Line, err)
			continue
		}

		rendered++
		fmt.Fprintf(stderr, "✓ line %d: %s (%s, trust %.0f)\n",
			result.Line, v.Title, v.Display.Verification.Badge, v.Display.TrustScore)
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(stderr, "  Rendered:  %d\n", rendered)
	fmt.Fprintf(stderr, "  Failed:    %d\n", failed)
	fmt.Fprintf(stderr, "  Empty:     %d\n", empty)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if ctx.Err() != nil {
		return fmt.Errorf("batch: %w", ctx.Err())
	}
	return nil
}
