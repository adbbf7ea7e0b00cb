package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/kyclens/internal/geometry"
	"github.com/disintegration/imaging"
)

// Style controls how rectangles are drawn.
type Style struct {
	BoxColor        color.Color
	FillColor       color.Color
	LabelColor      color.Color
	LabelBackground color.Color
	LineWidth       int
	ShowLabels      bool
}

// DefaultStyle draws red outlines with a faint fill and white-on-red labels.
func DefaultStyle() Style {
	return Style{
		BoxColor:        color.RGBA{R: 220, G: 38, B: 38, A: 255},
		FillColor:       color.NRGBA{R: 220, G: 38, B: 38, A: 40},
		LabelColor:      color.White,
		LabelBackground: color.RGBA{R: 220, G: 38, B: 38, A: 255},
		LineWidth:       2,
		ShowLabels:      true,
	}
}

// ParseHexColor parses "#rrggbb" or "rrggbb". It returns nil when s is not a
// valid color.
func ParseHexColor(s string) color.Color {
	if s == "" {
		return nil
	}
	if s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return nil
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return nil
	}
	return color.RGBA{R: uint8(rv), G: uint8(gv), B: uint8(bv), A: 255} //nolint:gosec // G115: values are parsed from two hex digits
}

// Layer draws rects on a transparent canvas of the given size, ready to be
// stacked over the rendered page image.
func Layer(width, height int, rects []ScreenRect, style Style) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	drawRects(dst, rects, style)
	return dst
}

// Render draws rects over a copy of page. The rects must already be projected
// for the page image's own pixel size.
func Render(page image.Image, rects []ScreenRect, style Style) *image.RGBA {
	if page == nil {
		return nil
	}
	b := page.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), page, b.Min, draw.Src)
	drawRects(dst, rects, style)
	return dst
}

// Resize scales page to width pixels, keeping its aspect ratio. A width of
// zero or the page's own width leaves the image untouched.
func Resize(page image.Image, width int) image.Image {
	if page == nil || width <= 0 || width == page.Bounds().Dx() {
		return page
	}
	return imaging.Resize(page, width, 0, imaging.Lanczos)
}

// SizeOf returns the rendered size of an image.
func SizeOf(img image.Image) RenderedSize {
	if img == nil {
		return RenderedSize{}
	}
	b := img.Bounds()
	return RenderedSize{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

func drawRects(dst *image.RGBA, rects []ScreenRect, style Style) {
	for _, r := range rects {
		rect := r.Box().ToRect(dst.Bounds())
		if rect.Empty() {
			continue
		}
		if style.FillColor != nil {
			geometry.FillRect(dst, rect, style.FillColor)
		}
		if style.BoxColor != nil {
			geometry.DrawRect(dst, rect, style.BoxColor, style.LineWidth)
		}
	}
	if !style.ShowLabels {
		return
	}
	// Labels go on last so no outline crosses them.
	for _, r := range rects {
		rect := r.Box().ToRect(dst.Bounds())
		if rect.Empty() {
			continue
		}
		geometry.DrawLabel(dst, rect.Min, r.Label, style.LabelColor, style.LabelBackground)
	}
}
