package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	Workers int
	Pages   []int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	OverlayDir  string
	RenderWidth int
	Style       overlay.Style

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	Progress         io.Writer
}

// DefaultConfig returns batch defaults.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		Style:            overlay.DefaultStyle(),
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Item is the outcome for one input file.
type Item struct {
	Path     string             `json:"path"`
	Document *pipeline.Document `json:"-"`
	Overlays []string           `json:"overlays,omitempty"`
	Err      error              `json:"-"`
}

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Failed returns the items that could not be processed.
func (r *Result) Failed() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// FormatResults formats the batch results in the specified format.
func (r *Result) FormatResults(format string, c extraction.Catalog, threshold float64) (string, error) {
	return formatBatchResults(r.Items, format, c, threshold)
}

// PrintStats writes processing statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	failed := len(r.Failed())
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total documents: %d\n", len(r.Items))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", len(r.Items)-failed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if n := len(r.Items); n > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per document: %v\n", (r.Duration / time.Duration(n)).Round(time.Millisecond))
	}
}
