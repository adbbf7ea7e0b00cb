package docai

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/geometry"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	req    *documentaipb.ProcessRequest
	doc    *documentaipb.Document
	err    error
	closed bool
	ctx    context.Context
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, _ ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.req = req
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return &documentaipb.ProcessResponse{Document: f.doc}, nil
}

func (f *fakeProcessor) Close() error {
	f.closed = true
	return nil
}

func testConfig() Config {
	return Config{ProjectID: "proj", Location: "us", ProcessorID: "abc123", SkipHumanReview: true}
}

func TestConfigNames(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "projects/proj/locations/us/processors/abc123", cfg.ProcessorName())
	assert.Equal(t, "us-documentai.googleapis.com:443", cfg.APIEndpoint())

	cfg.ProcessorVersionID = "v7"
	assert.Equal(t, "projects/proj/locations/us/processors/abc123/processorVersions/v7", cfg.ProcessorName())

	cfg.Endpoint = "localhost:9000"
	assert.Equal(t, "localhost:9000", cfg.APIEndpoint())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	for _, mutate := range []func(*Config){
		func(c *Config) { c.ProjectID = "" },
		func(c *Config) { c.Location = "" },
		func(c *Config) { c.ProcessorID = "" },
	} {
		cfg := testConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}
}

func TestBuildRequestPageSelector(t *testing.T) {
	req := BuildRequest(testConfig(), []byte("%PDF"), "application/pdf", []int{0, 1})
	assert.Equal(t, "application/pdf", req.GetRawDocument().GetMimeType())
	assert.True(t, req.GetSkipHumanReview())
	assert.Equal(t, []int32{1, 2}, req.GetProcessOptions().GetIndividualPageSelector().GetPages())

	all := BuildRequest(testConfig(), []byte("%PDF"), "application/pdf", nil)
	assert.Nil(t, all.GetProcessOptions())
}

func TestClientProcess(t *testing.T) {
	doc := &documentaipb.Document{Text: "hello"}
	proc := &fakeProcessor{doc: doc}
	cfg := testConfig()
	cfg.Timeout = time.Minute
	c := &Client{cfg: cfg, proc: proc}

	got, err := c.Process(context.Background(), []byte("data"), "image/png", nil)
	require.NoError(t, err)
	assert.Same(t, doc, got)
	assert.Equal(t, "image/png", proc.req.GetRawDocument().GetMimeType())
	_, hasDeadline := proc.ctx.Deadline()
	assert.True(t, hasDeadline)

	require.NoError(t, c.Close())
	assert.True(t, proc.closed)
}

func TestClientProcessError(t *testing.T) {
	boom := errors.New("quota")
	c := &Client{cfg: testConfig(), proc: &fakeProcessor{err: boom}}
	_, err := c.Process(context.Background(), []byte("data"), "application/pdf", nil)
	require.ErrorIs(t, err, boom)
}

func entity(typ, text string, conf float32, page int64, poly *documentaipb.BoundingPoly) *documentaipb.Document_Entity {
	e := &documentaipb.Document_Entity{Type: typ, MentionText: text, Confidence: conf}
	if poly != nil {
		e.PageAnchor = &documentaipb.Document_PageAnchor{
			PageRefs: []*documentaipb.Document_PageAnchor_PageRef{{Page: page, BoundingPoly: poly}},
		}
	}
	return e
}

func normalizedPoly(pts ...float32) *documentaipb.BoundingPoly {
	poly := &documentaipb.BoundingPoly{}
	for i := 0; i+1 < len(pts); i += 2 {
		poly.NormalizedVertices = append(poly.NormalizedVertices, &documentaipb.NormalizedVertex{X: pts[i], Y: pts[i+1]})
	}
	return poly
}

func TestToDocumentResult(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			entity("FirstName", " John ", 0.95, 0, normalizedPoly(0.1, 0.2, 0.3, 0.2, 0.3, 0.25, 0.1, 0.25)),
			entity("FirstName", "Jon", 0.40, 0, normalizedPoly(0.1, 0.2, 0.3, 0.25)),
			entity("Signature", "scribble", 0.99, 0, nil),
			entity("Employer", "ACME", 0.90, 1, &documentaipb.BoundingPoly{
				Vertices: []*documentaipb.Vertex{{X: 100, Y: 200}, {X: 400, Y: 260}},
			}),
			{
				Type: "contact",
				Properties: []*documentaipb.Document_Entity{
					entity("contact/EmailAddress", "john@example.com", 0.8, 0, normalizedPoly(0.5, 0.5, 0.7, 0.52)),
				},
			},
		},
		Pages: []*documentaipb.Document_Page{
			{PageNumber: 1, Dimension: &documentaipb.Document_Page_Dimension{Width: 1700, Height: 2200, Unit: "pixels"}},
			{PageNumber: 2, Dimension: &documentaipb.Document_Page_Dimension{Width: 1700, Height: 2200, Unit: "pixels"},
				Image: &documentaipb.Document_Page_Image{Content: []byte{0x89, 'P', 'N', 'G'}}},
		},
	}

	res := ToDocumentResult(doc, extraction.KYCCatalog())
	require.Len(t, res.Pages, 2)

	p0 := res.Pages[0]
	assert.Len(t, p0.Fields, 25)
	assert.Equal(t, "Date", p0.Fields[0].Name)
	require.NotNil(t, p0.Dimension)
	assert.InDelta(t, 1700.0, p0.Dimension.Width, 1e-6)

	first, ok := p0.Field("FirstName")
	require.True(t, ok)
	assert.Equal(t, "John", first.Value)
	assert.InDelta(t, 0.95, first.Confidence, 1e-6)
	require.NotNil(t, first.Box)
	b := first.Box.Bounds()
	assert.InDelta(t, 0.1, b.MinX, 1e-6)
	assert.InDelta(t, 0.25, b.MaxY, 1e-6)

	email, ok := p0.Field("EmailAddress")
	require.True(t, ok)
	assert.Equal(t, "john@example.com", email.Value)

	missing, ok := p0.Field("MiddleName")
	require.True(t, ok)
	assert.False(t, missing.Found())

	p1 := res.Pages[1]
	assert.Len(t, p1.Fields, 6)
	emp, ok := p1.Field("Employer")
	require.True(t, ok)
	assert.Equal(t, 1, emp.Page)
	assert.Equal(t, geometry.Box{MinX: 100, MinY: 200, MaxX: 400, MaxY: 260}, emp.Box.Bounds())

	images := PageImages(doc)
	assert.Len(t, images, 1)
	assert.NotEmpty(t, images[1])
}

func TestToDocumentResultNil(t *testing.T) {
	res := ToDocumentResult(nil, extraction.KYCCatalog())
	require.Len(t, res.Pages, 2)
	for _, p := range res.Pages {
		for _, f := range p.Fields {
			assert.False(t, f.Found())
		}
	}
}

func TestDumpJSON(t *testing.T) {
	out, err := DumpJSON(&documentaipb.Document{Text: "kyc"})
	require.NoError(t, err)
	assert.Contains(t, out, `"text"`)

	_, err = DumpJSON(nil)
	assert.Error(t, err)
}
