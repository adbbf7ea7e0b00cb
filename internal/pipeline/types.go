package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
)

// Extractor turns a document into structured field results.
type Extractor interface {
	Extract(ctx context.Context, content []byte, mimeType string, pages []int) (*Extraction, error)
	// Name identifies the extractor in summaries and cache keys.
	Name() string
}

// Extraction is what an Extractor returns. Dimensions and Images are
// optional and keyed by 0-based page index.
type Extraction struct {
	Result     *extraction.DocumentResult
	Dimensions map[int]*extraction.PageDimension
	Images     map[int][]byte
}

// Cache stores serialized extraction results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Stage names where processing failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageExtract  Stage = "extract"
	StageDecode   Stage = "decode"
)

// ProcessingError wraps a failure with the stage it happened in.
type ProcessingError struct {
	Stage Stage
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Document is a processed upload: the extraction result, its normalized
// entities and whatever page rasters could be obtained.
type Document struct {
	ID        string
	Filename  string
	MIMEType  string
	Pages     []int
	Result    *extraction.DocumentResult
	Entities  map[int][]normalize.Entity
	Summary   extraction.Summary
	Info      *document.Info
	Images    map[int]image.Image
	Cached    bool
	CreatedAt time.Time
}

// Dimension returns the natural size of page. The extractor's own dimension
// wins; the locally inspected size is the fallback.
func (d *Document) Dimension(page int) *extraction.PageDimension {
	if p, ok := d.Result.Page(page); ok && p.Dimension.Known() {
		return p.Dimension
	}
	return d.Info.Dimension(page)
}

// ViewResult returns the result with the locally inspected page sizes filled
// in where the extractor reported none. The receiver's result is not modified.
func (d *Document) ViewResult() *extraction.DocumentResult {
	if d.Result == nil {
		return nil
	}
	out := &extraction.DocumentResult{Pages: make([]extraction.PageResult, len(d.Result.Pages))}
	for i, p := range d.Result.Pages {
		if !p.Dimension.Known() {
			p.Dimension = d.Info.Dimension(p.Index)
		}
		out.Pages[i] = p
	}
	return out
}

// PageCount returns the number of pages that can be shown.
func (d *Document) PageCount() int {
	n := 0
	if d.Info != nil {
		n = d.Info.PageCount
	}
	if d.Result != nil {
		for _, p := range d.Result.Pages {
			n = max(n, p.Index+1)
		}
	}
	for page := range d.Entities {
		n = max(n, page+1)
	}
	return n
}

// PageEntities returns the entities located on page, never nil.
func (d *Document) PageEntities(page int) []normalize.Entity {
	if es := d.Entities[page]; es != nil {
		return es
	}
	return []normalize.Entity{}
}

// Overlay projects the entities of page onto a rendering of the given size.
func (d *Document) Overlay(page int, size overlay.RenderedSize) []overlay.ScreenRect {
	return overlay.Project(d.PageEntities(page), page, size, d.Dimension(page))
}

// PageImage returns the raster for page, if one was obtained.
func (d *Document) PageImage(page int) (image.Image, bool) {
	img, ok := d.Images[page]
	return img, ok && img != nil
}

// Information renders the catalog view of the result.
func (d *Document) Information(c extraction.Catalog, threshold float64) extraction.Information {
	return extraction.NewInformation(c, d.Result, threshold)
}

// StaticExtractor serves a fixed extraction, for offline reprocessing of a
// saved result and for tests.
type StaticExtractor struct {
	ExtractorName string
	Extraction    Extraction
	Err           error

	mu    sync.Mutex
	calls int
}

// NewStaticExtractor returns an extractor that always yields result.
func NewStaticExtractor(result *extraction.DocumentResult) *StaticExtractor {
	return &StaticExtractor{ExtractorName: "static", Extraction: Extraction{Result: result}}
}

// Name implements Extractor.
func (s *StaticExtractor) Name() string { return s.ExtractorName }

// Extract implements Extractor.
func (s *StaticExtractor) Extract(ctx context.Context, _ []byte, _ string, _ []int) (*Extraction, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	ext := s.Extraction
	return &ext, nil
}

// Calls reports how often Extract ran.
func (s *StaticExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
