// Package batch processes many documents from disk through the pipeline.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/pipeline"
)

// logProgressEvery is how many documents pass between progress log lines.
const logProgressEvery = 10

// ProcessBatch discovers documents under paths and processes them with p.
// Individual failures are reported per item; only discovery errors fail the
// batch.
func ProcessBatch(ctx context.Context, p Processor, paths []string, cfg *Config) (*Result, error) {
	files, err := discoverDocuments(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no documents found")
	}

	var progress pipeline.ProgressCallback = pipeline.NoOpProgressCallback{}
	switch {
	case cfg.Quiet:
	case cfg.ShowProgress:
		w := cfg.Progress
		if w == nil {
			w = os.Stderr
		}
		progress = pipeline.NewConsoleProgressCallback(w, "Processing: ").WithUpdateInterval(cfg.ProgressInterval)
	default:
		progress = pipeline.NewLogProgressCallback(slog.Default(), logProgressEvery)
	}

	start := time.Now()
	items := processParallel(ctx, p, files, cfg, progress)
	return &Result{
		Items:       items,
		Duration:    time.Since(start),
		WorkerCount: max(cfg.Workers, 1),
	}, nil
}
