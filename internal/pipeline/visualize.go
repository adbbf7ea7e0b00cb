package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
)

// RenderPage draws the overlay for page onto its raster, resized to width
// when width > 0.
func (d *Document) RenderPage(page, width int, style overlay.Style) (image.Image, error) {
	img, ok := d.PageImage(page)
	if !ok {
		return nil, fmt.Errorf("no image for page %d", page)
	}
	if width > 0 {
		img = overlay.Resize(img, width)
	}
	return overlay.Render(img, d.Overlay(page, overlay.SizeOf(img)), style), nil
}

// ExportPages lists every page for PDF export. Pages without a raster are
// exported blank at their natural size.
func (d *Document) ExportPages() ([]overlay.ExportPage, error) {
	pages := make([]overlay.ExportPage, 0, d.PageCount())
	for page := range d.PageCount() {
		p := overlay.ExportPage{
			Index:     page,
			Dimension: d.Dimension(page),
			Entities:  d.PageEntities(page),
		}
		if img, ok := d.PageImage(page); ok {
			data, err := document.EncodePNG(img)
			if err != nil {
				return nil, err
			}
			p.Image = data
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// SaveOverlays writes one <name>_page<N>_overlay.png per page raster into dir
// and returns the written paths.
func (d *Document) SaveOverlays(dir string, width int, style overlay.Style) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create overlay dir: %w", err)
	}
	base := filepath.Base(d.Filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = d.ID
	}

	indices := make([]int, 0, len(d.Images))
	for page := range d.Images {
		indices = append(indices, page)
	}
	slices.Sort(indices)

	var written []string
	for _, page := range indices {
		img, err := d.RenderPage(page, width, style)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_page%d_overlay.png", base, page+1))
		if err := writePNG(path, img); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: path built from the configured overlay dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
