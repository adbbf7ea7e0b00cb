package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
	"golang.org/x/text/encoding/charmap"
)

// A4 in points, used for pages that have neither an image nor a dimension.
const (
	a4Width  = 595.28
	a4Height = 841.89
)

// ExportPage is one page of an annotated PDF export.
type ExportPage struct {
	Index     int
	Image     []byte // encoded PNG or JPEG; may be empty
	Dimension *extraction.PageDimension
	Entities  []normalize.Entity
}

// ExportPDF writes one PDF page per ExportPage with the page image as
// background and the entity highlights on a separate optional-content layer.
// Page sizes in points equal the image's pixel size.
func ExportPDF(pages []ExportPage, style Style) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("no pages to export")
	}
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	layer := pdf.AddLayer("Extracted fields", true)

	for _, p := range pages {
		size, imageType, err := pageSize(p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.Index+1, err)
		}
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})

		if imageType != "" {
			name := fmt.Sprintf("page%d", p.Index)
			opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imageType}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Image))
			pdf.ImageOptions(name, 0, 0, size.Width, size.Height, false, opts, 0, "")
		}

		pdf.BeginLayer(layer)
		drawPDFRects(pdf, Project(p.Entities, p.Index, size, p.Dimension), style)
		pdf.EndLayer()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func pageSize(p ExportPage) (RenderedSize, string, error) {
	if len(p.Image) > 0 {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Image))
		if err != nil {
			return RenderedSize{}, "", fmt.Errorf("failed to decode image config: %w", err)
		}
		return RenderedSize{Width: float64(cfg.Width), Height: float64(cfg.Height)}, strings.ToUpper(format), nil
	}
	if p.Dimension.Known() {
		return RenderedSize{Width: p.Dimension.Width, Height: p.Dimension.Height}, "", nil
	}
	return RenderedSize{Width: a4Width, Height: a4Height}, "", nil
}

func drawPDFRects(pdf *fpdf.Fpdf, rects []ScreenRect, style Style) {
	lw := float64(style.LineWidth)
	if lw <= 0 {
		lw = 1
	}
	pdf.SetLineWidth(lw)
	pdf.SetDrawColor(rgb(style.BoxColor, color.Black))
	pdf.SetFont("Helvetica", "", 8)

	for _, r := range rects {
		pdf.Rect(r.X, r.Y, r.Width, r.Height, "D")
		if !style.ShowLabels || r.Label == "" {
			continue
		}
		text, err := charmap.ISO8859_1.NewEncoder().String(r.Label)
		if err != nil {
			text = r.Key
		}
		w := pdf.GetStringWidth(text) + 4
		top := r.Y - 10
		if top < 0 {
			top = r.Y
		}
		pdf.SetFillColor(rgb(style.LabelBackground, color.White))
		pdf.Rect(r.X, top, w, 10, "F")
		pdf.SetTextColor(rgb(style.LabelColor, color.Black))
		pdf.Text(r.X+2, top+8, text)
	}
}

func rgb(c, fallback color.Color) (int, int, int) {
	if c == nil {
		c = fallback
	}
	r, g, b, _ := c.RGBA()
	return int(r >> 8), int(g >> 8), int(b >> 8)
}
