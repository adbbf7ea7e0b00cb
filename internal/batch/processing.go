package batch

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
)

// Processor is the part of the pipeline a batch needs.
type Processor interface {
	Process(ctx context.Context, upload document.Upload, pages []int) (*pipeline.Document, error)
}

func loadUpload(path string) (document.Upload, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: batch inputs are user-provided paths
	if err != nil {
		return document.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return document.Upload{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func processSingle(ctx context.Context, p Processor, path string, cfg *Config) Item {
	item := Item{Path: path}
	upload, err := loadUpload(path)
	if err != nil {
		item.Err = err
		return item
	}
	doc, err := p.Process(ctx, upload, cfg.Pages)
	if err != nil {
		item.Err = fmt.Errorf("processing %s: %w", path, err)
		return item
	}
	item.Document = doc
	if cfg.OverlayDir != "" {
		written, err := doc.SaveOverlays(cfg.OverlayDir, cfg.RenderWidth, cfg.Style)
		if err != nil {
			slog.Warn("failed to write overlays", "file", path, "error", err)
		}
		item.Overlays = written
	}
	return item
}

// processParallel fans paths out over workers. Results keep input order.
func processParallel(ctx context.Context, p Processor, paths []string, cfg *Config, progress pipeline.ProgressCallback) []Item {
	workers := max(cfg.Workers, 1)
	items := make([]Item, len(paths))
	jobs := make(chan int)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	progress.OnStart(len(paths))
	for range min(workers, max(len(paths), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				it := processSingle(ctx, p, paths[i], cfg)
				items[i] = it

				mu.Lock()
				done++
				if it.Err != nil {
					progress.OnError(done, it.Err)
				}
				progress.OnProgress(done, len(paths))
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				items[j] = Item{Path: paths[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	progress.OnComplete()
	return items
}
