package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/deepcheck/internal/present"
)

// maxLineBytes bounds one JSONL record
const maxLineBytes = 4 << 20

// ProcessFunc turns one raw analysis result into its view
type ProcessFunc func(ctx context.Context, raw []byte) present.View

// Line is one analysis result read from a batch file
type Line struct {
	Number int
	Raw    []byte
}

// LineJob processes one batch line
type LineJob struct {
	Line    Line
	Process ProcessFunc
}

// Execute executes the job
func (j *LineJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &LineResult{Line: j.Line.Number, Error: err}
	}

	view := j.Process(ctx, j.Line.Raw)
	result := &LineResult{Line: j.Line.Number, View: view}
	if view.State == present.StateError {
		result.Error = errors.New(view.Error)
	}
	return result
}

// LineResult is the outcome of one batch line
type LineResult struct {
	Line  int
	View  present.View
	Error error
}

// GetError returns the error from the line result
func (r *LineResult) GetError() error {
	return r.Error
}

// BatchProcessor processes many analysis results concurrently
type BatchProcessor struct {
	process     ProcessFunc
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(process ProcessFunc, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		process:     process,
		concurrency: concurrency,
	}
}

// ProcessLines processes the lines and returns one result per line, in
// file order. Lines left unprocessed by cancellation carry the context error.
func (b *BatchProcessor) ProcessLines(ctx context.Context, lines []Line) []*LineResult {
	if len(lines) == 0 {
		return []*LineResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	accepted := 0
	for _, line := range lines {
		if !pool.Submit(&LineJob{Line: line, Process: b.process}) {
			break
		}
		accepted++
	}

	// Accepted jobs are a prefix of lines and results keep submission order
	results := pool.Wait()

	lineResults := make([]*LineResult, 0, len(lines))
	for i, result := range results {
		switch r := result.(type) {
		case *LineResult:
			lineResults = append(lineResults, r)
		default:
			lineResults = append(lineResults, &LineResult{Line: lines[i].Number, Error: result.GetError()})
		}
	}

	for _, line := range lines[accepted:] {
		err := ctx.Err()
		if err == nil {
			err = errors.New("not processed")
		}
		lineResults = append(lineResults, &LineResult{Line: line.Number, Error: err})
	}

	return lineResults
}

// ProcessFile reads a JSONL file and processes every record
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*LineResult, error) {
	lines, err := ReadLines(filePath)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	return b.ProcessLines(ctx, lines), nil
}

// ReadLines reads one analysis result per line. Blank lines and lines
// starting with # are skipped; line numbers are 1-based file positions.
func ReadLines(filePath string) ([]Line, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []Line

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	number := 0
	for scanner.Scan() {
		number++
		text := strings.TrimSpace(scanner.Text())

		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		lines = append(lines, Line{Number: number, Raw: []byte(text)})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
