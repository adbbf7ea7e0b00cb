// Package overlay projects canonical entity boxes onto a rendered page image
// and draws them.
package overlay

import (
	"math"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/geometry"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
)

// RenderedSize is the on-screen pixel size of a displayed page image.
type RenderedSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Available reports whether the page has been laid out.
func (s RenderedSize) Available() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// ScreenRect is an entity's highlight in on-screen pixels, top-left origin.
type ScreenRect struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
	// Approximate marks an absolute box drawn in raw extractor units because
	// the page's natural dimension was unknown.
	Approximate bool `json:"approximate,omitempty"`
}

// Box returns the rectangle as a geometry.Box.
func (r ScreenRect) Box() geometry.Box {
	return geometry.FromRect(r.X, r.Y, r.Width, r.Height)
}

// Project computes screen rectangles for the entities on page. Entities on
// other pages and rectangles that end up empty are dropped. dim may be nil.
// The result depends only on the arguments.
func Project(entities []normalize.Entity, page int, rendered RenderedSize, dim *extraction.PageDimension) []ScreenRect {
	if !rendered.Available() {
		return nil
	}
	rects := make([]ScreenRect, 0, len(entities))
	for _, e := range entities {
		if e.Page != page {
			continue
		}
		var box geometry.Box
		approximate := false
		if c, ok := e.Resolve(dim); ok {
			box = c.Box().Scale(rendered.Width, rendered.Height)
		} else {
			box = e.Source
			approximate = true
		}

		box = roundBox(box)
		if !box.Finite() || box.Empty() {
			continue
		}
		rects = append(rects, ScreenRect{
			X:           box.MinX,
			Y:           box.MinY,
			Width:       round(box.Width()),
			Height:      round(box.Height()),
			Key:         e.Key,
			Label:       e.Label,
			Value:       e.Value,
			Confidence:  e.Confidence,
			Page:        e.Page,
			Approximate: approximate,
		})
	}
	return rects
}

const precision = 1000

func round(v float64) float64 {
	return math.Round(v*precision) / precision
}

func roundBox(b geometry.Box) geometry.Box {
	return geometry.Box{MinX: round(b.MinX), MinY: round(b.MinY), MaxX: round(b.MaxX), MaxY: round(b.MaxY)}
}
