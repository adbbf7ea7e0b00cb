package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder

	"github.com/MeKo-Tech/kyclens/internal/extraction"
)

// Units reported in Info dimensions.
const (
	UnitPoints = "pt"
	UnitPixels = "px"
)

// Info describes the page geometry of a document as read locally, without
// any extraction service.
type Info struct {
	MIMEType   string                     `json:"mime_type"`
	PageCount  int                        `json:"page_count"`
	Dimensions []extraction.PageDimension `json:"dimensions"`
}

// Dimension returns the natural size of page, or nil when unknown.
func (i *Info) Dimension(page int) *extraction.PageDimension {
	if i == nil || page < 0 || page >= len(i.Dimensions) {
		return nil
	}
	d := i.Dimensions[page]
	if !d.Known() {
		return nil
	}
	return &d
}

// Inspect reads page count and natural page sizes. PDFs report points,
// images report pixels.
func Inspect(data []byte, mimeType string) (*Info, error) {
	if mimeType == "application/pdf" {
		return inspectPDF(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	return &Info{
		MIMEType:  mimeType,
		PageCount: 1,
		Dimensions: []extraction.PageDimension{{
			Width: float64(cfg.Width), Height: float64(cfg.Height), Unit: UnitPixels,
		}},
	}, nil
}

func readPDFContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx, nil
}

func inspectPDF(data []byte) (*Info, error) {
	ctx, err := readPDFContext(data)
	if err != nil {
		return nil, err
	}
	info := &Info{MIMEType: "application/pdf", PageCount: ctx.PageCount}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	info.Dimensions = make([]extraction.PageDimension, 0, len(dims))
	for _, d := range dims {
		info.Dimensions = append(info.Dimensions, extraction.PageDimension{
			Width: d.Width, Height: d.Height, Unit: UnitPoints,
		})
	}
	return info, nil
}
