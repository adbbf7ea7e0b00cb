package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/kyclens/internal/cache"
	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
)

// Process validates upload, extracts it (or reuses a cached extraction) and
// normalizes the result. pages selects 0-based pages; nil means all.
func (p *Pipeline) Process(ctx context.Context, upload document.Upload, pages []int) (*Document, error) {
	start := time.Now()

	mimeType, err := document.Validate(upload, p.cfg.Limits)
	if err != nil {
		return nil, err
	}
	pages, err = document.ValidatePages(pages, p.cfg.Limits.MaxPages)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:        uuid.NewString(),
		Filename:  upload.Filename,
		MIMEType:  mimeType,
		Pages:     pages,
		CreatedAt: start,
	}

	if info, err := document.Inspect(upload.Data, mimeType); err != nil {
		p.logger.Warn("document inspection failed", "file", upload.Filename, "error", err)
	} else {
		doc.Info = info
	}

	key := cache.Key(upload.Data, p.extractor.Name(), pages)
	var ext *Extraction
	if result, ok := p.lookup(ctx, key); ok {
		ext = &Extraction{Result: result}
		doc.Cached = true
	} else {
		ext, err = p.extractor.Extract(ctx, upload.Data, mimeType, pages)
		if err != nil {
			return nil, &ProcessingError{Stage: StageExtract, Err: err}
		}
		if ext == nil || ext.Result == nil {
			return nil, &ProcessingError{Stage: StageExtract, Err: errors.New("extractor returned no result")}
		}
		applyDimensions(ext.Result, ext.Dimensions)
		p.store(ctx, key, ext.Result)
	}

	doc.Result = ext.Result
	doc.Entities = normalize.Document(ext.Result)
	doc.Images = p.pageImages(upload, mimeType, pages, ext.Images)

	doc.Summary = extraction.Summarize(ext.Result)
	doc.Summary.ExtractorUsed = p.cfg.Catalog.Name
	doc.Summary.ProcessingTimeSeconds = time.Since(start).Seconds()

	p.logger.Info("document processed",
		"id", doc.ID,
		"file", upload.Filename,
		"mime", mimeType,
		"cached", doc.Cached,
		"fields_found", doc.Summary.FieldsFound,
		"duration", time.Since(start).Round(time.Millisecond))
	return doc, nil
}

// applyDimensions fills page dimensions the result does not carry itself.
func applyDimensions(result *extraction.DocumentResult, dims map[int]*extraction.PageDimension) {
	for i := range result.Pages {
		page := &result.Pages[i]
		if page.Dimension.Known() {
			continue
		}
		if d := dims[page.Index]; d.Known() {
			page.Dimension = d
		}
	}
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*extraction.DocumentResult, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			p.logger.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}
	result, err := extraction.ParseDocument(data)
	if err != nil {
		p.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	return result, true
}

func (p *Pipeline) store(ctx context.Context, key string, result *extraction.DocumentResult) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		p.logger.Warn("failed to encode result for cache", "error", err)
		return
	}
	if err := p.cache.Set(ctx, key, data); err != nil {
		p.logger.Warn("cache store failed", "error", err)
	}
}

func (p *Pipeline) pageImages(upload document.Upload, mimeType string, pages []int, encoded map[int][]byte) map[int]image.Image {
	images := make(map[int]image.Image, len(encoded))
	for page, data := range encoded {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			p.logger.Warn("skipping undecodable page image", "page", page, "error", err)
			continue
		}
		images[page] = img
	}
	if len(images) > 0 || !p.cfg.LocalImages {
		return images
	}
	local, err := document.PageImages(upload.Data, mimeType, pages)
	if err != nil {
		p.logger.Warn("local page extraction failed", "file", upload.Filename, "error", err)
		return images
	}
	return local
}
