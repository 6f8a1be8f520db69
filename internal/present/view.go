// Package present turns raw analysis payloads into what a consumer shows:
// an empty state, an error state, or the results view.
package present

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ppiankov/deepcheck/internal/model"
)

// State is the presentation state of a view
type State string

const (
	StateEmpty   State = "empty"
	StateError   State = "error"
	StateResults State = "results"
)

const (
	emptyTitle   = "No Results Yet"
	emptyMessage = "Analyze content to see detailed misinformation detection results here."
	errorTitle   = "Error Rendering Results"
	errorMessage = "There was an error displaying the analysis results."
)

// View is what the results screen renders
type View struct {
	State   State                 `json:"state"`
	Title   string                `json:"title,omitempty"`
	Message string                `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"` // Underlying fault, error state only
	Display *model.Display        `json:"display,omitempty"`
	Raw     *model.AnalysisResult `json:"raw,omitempty"` // Raw analysis data for the debug panel
}

// Deriver derives the display model from a result
type Deriver interface {
	Normalize(r *model.AnalysisResult) model.Display
}

// Builder builds views. It never fails: every fault becomes an error view.
type Builder struct {
	deriver Deriver
	logger  *slog.Logger
}

// NewBuilder creates a view builder
func NewBuilder(deriver Deriver, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		deriver: deriver,
		logger:  logger.With("system", "present"),
	}
}

// Empty returns the "no results yet" view
func Empty() View {
	return View{State: StateEmpty, Title: emptyTitle, Message: emptyMessage}
}

// Build decodes a raw JSON payload and builds its view. No payload or JSON
// null gives the empty view; anything that is not a JSON object gives the
// error view.
func (b *Builder) Build(raw []byte) View {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Empty()
	}

	r, err := Decode(trimmed)
	if err != nil {
		return b.errorView(err)
	}
	return b.BuildResult(r)
}

// BuildResult builds the view of an already decoded result
func (b *Builder) BuildResult(r *model.AnalysisResult) (v View) {
	if r == nil {
		return Empty()
	}

	defer func() {
		if p := recover(); p != nil {
			v = b.errorView(fmt.Errorf("derive display: %v", p))
		}
	}()

	d := b.deriver.Normalize(r)
	return View{State: StateResults, Title: d.Title, Display: &d, Raw: r}
}

func (b *Builder) errorView(err error) View {
	b.logger.Error("rendering results", "error", err)
	return View{
		State:   StateError,
		Title:   errorTitle,
		Message: errorMessage,
		Error:   err.Error(),
	}
}

// Decode parses a JSON analysis result. The payload must be an object.
func Decode(raw []byte) (*model.AnalysisResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("analysis result must be a JSON object")
	}

	var r model.AnalysisResult
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	return &r, nil
}
