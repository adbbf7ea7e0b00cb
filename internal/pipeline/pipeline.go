// Package pipeline runs an upload through validation, extraction,
// normalization and page rasterization.
package pipeline

import (
	"errors"
	"log/slog"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
)

// DefaultConfidenceThreshold marks fields below it as low confidence.
const DefaultConfidenceThreshold = 0.5

// Config holds configuration for the processing pipeline.
type Config struct {
	Catalog             extraction.Catalog
	Limits              document.Limits
	ConfidenceThreshold float64
	// LocalImages extracts page rasters from the upload when the extractor
	// returns none.
	LocalImages bool
}

// DefaultConfig returns a pipeline config for the KYC catalog.
func DefaultConfig() Config {
	return Config{
		Catalog:             extraction.KYCCatalog(),
		Limits:              document.DefaultLimits(),
		ConfidenceThreshold: DefaultConfidenceThreshold,
		LocalImages:         true,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg       Config
	extractor Extractor
	cache     Cache
	logger    *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithExtractor sets the extraction backend.
func (b *Builder) WithExtractor(e Extractor) *Builder {
	b.extractor = e
	return b
}

// WithCache enables result caching.
func (b *Builder) WithCache(c Cache) *Builder {
	b.cache = c
	return b
}

// WithCatalog overrides the field catalog.
func (b *Builder) WithCatalog(c extraction.Catalog) *Builder {
	if len(c.Pages) > 0 {
		b.cfg.Catalog = c
	}
	return b
}

// WithLimits sets upload limits. Zero values keep the defaults.
func (b *Builder) WithLimits(l document.Limits) *Builder {
	if l.MaxBytes > 0 {
		b.cfg.Limits.MaxBytes = l.MaxBytes
	}
	if l.MaxPages > 0 {
		b.cfg.Limits.MaxPages = l.MaxPages
	}
	return b
}

// WithConfidenceThreshold sets the low-confidence threshold.
func (b *Builder) WithConfidenceThreshold(t float64) *Builder {
	if t >= 0 && t <= 1 {
		b.cfg.ConfidenceThreshold = t
	}
	return b
}

// WithLocalImages toggles local page rasterization.
func (b *Builder) WithLocalImages(enabled bool) *Builder {
	b.cfg.LocalImages = enabled
	return b
}

// WithLogger sets the logger used for non-fatal problems.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns the builder's current configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns a pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: b.cfg, extractor: b.extractor, cache: b.cache, logger: logger}, nil
}

// Pipeline processes uploads. It is safe for concurrent use if its
// Extractor and Cache are.
type Pipeline struct {
	cfg       Config
	extractor Extractor
	cache     Cache
	logger    *slog.Logger
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// ExtractorName returns the name of the configured extractor.
func (p *Pipeline) ExtractorName() string { return p.extractor.Name() }
