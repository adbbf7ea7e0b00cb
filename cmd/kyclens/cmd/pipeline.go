package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/cache"
	"github.com/MeKo-Tech/kyclens/internal/config"
	"github.com/MeKo-Tech/kyclens/internal/docai"
	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
)

const cachePingTimeout = 3 * time.Second

// extractorOptions selects the extraction backend for a command.
type extractorOptions struct {
	// FromResult replays a saved extraction result instead of calling
	// Document AI.
	FromResult string
	// RawDump receives every raw Document AI response.
	RawDump io.Writer
}

// newExtractor builds the extractor for opts. The returned cleanup must be
// called once the extractor is no longer used.
func newExtractor(ctx context.Context, cfg *config.Config, opts extractorOptions) (pipeline.Extractor, func(), error) {
	if opts.FromResult != "" {
		result, err := loadResult(opts.FromResult)
		if err != nil {
			return nil, nil, err
		}
		ext := pipeline.NewStaticExtractor(result)
		ext.ExtractorName = "saved:" + filepath.Base(opts.FromResult)
		return ext, func() {}, nil
	}

	if err := cfg.ValidateExtractor(); err != nil {
		return nil, nil, fmt.Errorf("extractor not configured: %w", err)
	}
	client, err := docai.NewClient(ctx, cfg.DocAIConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	ext := pipeline.NewDocAIExtractor(client, extraction.KYCCatalog())
	if opts.RawDump != nil {
		ext.WithRawDump(opts.RawDump)
	}
	return ext, func() {
		if err := ext.Close(); err != nil {
			slog.Warn("Failed to close Document AI client", "error", err)
		}
	}, nil
}

// newPipeline wires ext, the optional result cache and the configured limits
// into a pipeline.
func newPipeline(ctx context.Context, cfg *config.Config, ext pipeline.Extractor, threshold float64) (*pipeline.Pipeline, func(), error) {
	b := pipeline.NewBuilder().
		WithExtractor(ext).
		WithLimits(cfg.UploadLimits()).
		WithConfidenceThreshold(threshold).
		WithLogger(slog.Default())

	cleanup := func() {}
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.CacheSettings())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, cachePingTimeout)
		err = c.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("Result cache unreachable, continuing without it", "error", err)
			c.Close()
		} else {
			b.WithCache(c)
			cleanup = c.Close
		}
	}

	p, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

func loadResult(path string) (*extraction.DocumentResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided result file
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	result, err := extraction.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse result %s: %w", path, err)
	}
	return result, nil
}

func loadUpload(path string) (document.Upload, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided input file
	if err != nil {
		return document.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return document.Upload{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

// writeOutput writes s to path, or to w when path is empty.
func writeOutput(w io.Writer, path, s string) error {
	if path == "" {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	if err := os.WriteFile(path, []byte(s+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
