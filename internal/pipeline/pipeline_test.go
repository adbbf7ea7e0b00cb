package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/kyclens/internal/cache"
	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/testutil"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func pngUpload(w, h int) document.Upload {
	return document.Upload{Filename: "form.png", ContentType: "image/png", Data: testutil.FormPNG(w, h)}
}

func buildPipeline(t *testing.T, ext Extractor, c Cache) *Pipeline {
	t.Helper()
	b := NewBuilder().WithExtractor(ext)
	if c != nil {
		b.WithCache(c)
	}
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func TestBuilder(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)

	b := NewBuilder().
		WithExtractor(NewStaticExtractor(&extraction.DocumentResult{})).
		WithLimits(document.Limits{MaxBytes: 1024}).
		WithConfidenceThreshold(0.7).
		WithConfidenceThreshold(3).
		WithLocalImages(false)
	cfg := b.Config()
	assert.Equal(t, int64(1024), cfg.Limits.MaxBytes)
	assert.Equal(t, document.DefaultMaxPages, cfg.Limits.MaxPages)
	assert.InDelta(t, 0.7, cfg.ConfidenceThreshold, 1e-9)
	assert.False(t, cfg.LocalImages)
	assert.Equal(t, "custom-kyc-extractor", cfg.Catalog.Name)

	p, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "static", p.ExtractorName())
}

func TestProcess(t *testing.T) {
	ext := NewStaticExtractor(testutil.SampleResult())
	p := buildPipeline(t, ext, nil)

	doc, err := p.Process(context.Background(), pngUpload(100, 200), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "form.png", doc.Filename)
	assert.Equal(t, "image/png", doc.MIMEType)
	assert.False(t, doc.Cached)
	require.NotNil(t, doc.Info)
	assert.Equal(t, 1, doc.Info.PageCount)

	require.Len(t, doc.Entities[0], 2)
	assert.Equal(t, "FirstName", doc.Entities[0][0].Key)
	assert.Equal(t, "LastName", doc.Entities[0][1].Key)
	require.Len(t, doc.Entities[1], 1)
	assert.Equal(t, 2, doc.PageCount())

	assert.Equal(t, 2, doc.Summary.TotalPages)
	assert.Equal(t, 3, doc.Summary.FieldsFound)
	assert.Equal(t, 1, doc.Summary.FieldsMissing)
	assert.Equal(t, "custom-kyc-extractor", doc.Summary.ExtractorUsed)

	img, ok := doc.PageImage(0)
	require.True(t, ok)
	assert.Equal(t, 100, img.Bounds().Dx())
	_, ok = doc.PageImage(1)
	assert.False(t, ok)

	rects := doc.Overlay(0, overlay.RenderedSize{Width: 500, Height: 1000})
	require.Len(t, rects, 2)
	assert.InDelta(t, 50, rects[0].X, 1e-9)
	assert.InDelta(t, 100, rects[0].Y, 1e-9)
	assert.InDelta(t, 150, rects[0].Width, 1e-9)
	assert.InDelta(t, 50, rects[1].Height, 1e-9)
	assert.False(t, rects[1].Approximate)
}

func TestProcessValidation(t *testing.T) {
	p := buildPipeline(t, NewStaticExtractor(testutil.SampleResult()), nil)

	_, err := p.Process(context.Background(), document.Upload{Filename: "a.pdf"}, nil)
	assert.ErrorIs(t, err, document.ErrEmptyFile)

	_, err = p.Process(context.Background(), pngUpload(10, 10), []int{-1})
	assert.ErrorIs(t, err, document.ErrInvalidPages)
}

func TestProcessExtractorError(t *testing.T) {
	ext := NewStaticExtractor(nil)
	ext.Err = errors.New("quota")
	p := buildPipeline(t, ext, nil)

	_, err := p.Process(context.Background(), pngUpload(10, 10), nil)
	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageExtract, perr.Stage)
	assert.ErrorIs(t, err, ext.Err)

	_, err = buildPipeline(t, NewStaticExtractor(nil), nil).Process(context.Background(), pngUpload(10, 10), nil)
	require.ErrorAs(t, err, &perr)
}

func TestProcessUsesCache(t *testing.T) {
	ext := NewStaticExtractor(testutil.SampleResult())
	c := newMemCache()
	p := buildPipeline(t, ext, c)
	upload := pngUpload(50, 50)

	first, err := p.Process(context.Background(), upload, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, c.sets)

	second, err := p.Process(context.Background(), upload, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, ext.Calls())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Entities, second.Entities)

	_, err = p.Process(context.Background(), upload, []int{0})
	require.NoError(t, err)
	assert.Equal(t, 2, ext.Calls())
}

func TestProcessIgnoresCorruptCache(t *testing.T) {
	ext := NewStaticExtractor(testutil.SampleResult())
	c := newMemCache()
	upload := pngUpload(20, 20)
	c.data[cache.Key(upload.Data, ext.Name(), nil)] = []byte("{broken")

	doc, err := buildPipeline(t, ext, c).Process(context.Background(), upload, nil)
	require.NoError(t, err)
	assert.False(t, doc.Cached)
	assert.Equal(t, 1, ext.Calls())
}

func TestDimensionFallsBackToInspection(t *testing.T) {
	result := &extraction.DocumentResult{Pages: []extraction.PageResult{{
		Index: 0,
		Fields: []extraction.FieldResult{{
			Name: "FirstName", Value: "JANE", Confidence: 0.9,
			Box: extraction.PointRect(20, 40, 60, 20),
		}},
	}}}
	p := buildPipeline(t, NewStaticExtractor(result), nil)

	doc, err := p.Process(context.Background(), pngUpload(200, 400), nil)
	require.NoError(t, err)
	require.Len(t, doc.Entities[0], 1)
	assert.Nil(t, doc.Entities[0][0].Box)

	dim := doc.Dimension(0)
	require.NotNil(t, dim)
	assert.InDelta(t, 200, dim.Width, 1e-9)

	rects := doc.Overlay(0, overlay.RenderedSize{Width: 100, Height: 200})
	require.Len(t, rects, 1)
	assert.InDelta(t, 10, rects[0].X, 1e-9)
	assert.InDelta(t, 20, rects[0].Y, 1e-9)
	assert.InDelta(t, 30, rects[0].Width, 1e-9)
	assert.InDelta(t, 10, rects[0].Height, 1e-9)
	assert.False(t, rects[0].Approximate)
}

func TestApplyDimensions(t *testing.T) {
	result := &extraction.DocumentResult{Pages: []extraction.PageResult{
		{Index: 0},
		{Index: 1, Dimension: &extraction.PageDimension{Width: 1, Height: 2}},
	}}
	applyDimensions(result, map[int]*extraction.PageDimension{
		0: {Width: 10, Height: 20},
		1: {Width: 30, Height: 40},
	})
	assert.InDelta(t, 10, result.Pages[0].Dimension.Width, 1e-9)
	assert.InDelta(t, 1, result.Pages[1].Dimension.Width, 1e-9)
}

func TestPageEntitiesNeverNil(t *testing.T) {
	doc := &Document{}
	assert.NotNil(t, doc.PageEntities(3))
	assert.Empty(t, doc.Overlay(3, overlay.RenderedSize{Width: 10, Height: 10}))
}
