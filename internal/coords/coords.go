// Package coords decides which coordinate convention a bounding box uses and
// converts it into the canonical page-fraction space.
//
// Extractors do not tag their units. A box is treated as normalized when its
// right and bottom edges both sit at or below NormalizedLimit; anything larger
// is taken to be absolute page pixels.
package coords

import (
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/geometry"
)

// NormalizedLimit is the largest edge value still read as a 0..1 fraction.
// Values slightly above 1 come from extractors that overshoot the page edge.
const NormalizedLimit = 1.5

// Space is a coordinate convention.
type Space int

const (
	// Normalized boxes are fractions of the page size.
	Normalized Space = iota
	// Absolute boxes are in the extractor's page pixel units.
	Absolute
)

func (s Space) String() string {
	if s == Normalized {
		return "normalized"
	}
	return "absolute"
}

// Classify returns the convention a reduced rectangle is expressed in.
func Classify(b geometry.Box) Space {
	if b.MaxX <= NormalizedLimit && b.MaxY <= NormalizedLimit {
		return Normalized
	}
	return Absolute
}

// CanonicalBox is a rectangle expressed as fractions of the page's natural
// size with a top-left origin.
type CanonicalBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Box returns the canonical rectangle as a geometry.Box.
func (c CanonicalBox) Box() geometry.Box {
	return geometry.Box{MinX: c.X0, MinY: c.Y0, MaxX: c.X1, MaxY: c.Y1}
}

func fromBox(b geometry.Box) CanonicalBox {
	return CanonicalBox{X0: b.MinX, Y0: b.MinY, X1: b.MaxX, Y1: b.MaxY}
}

// Canonicalize converts a reduced raw rectangle to canonical space.
// Normalized rectangles are clamped to [0,1]. Absolute rectangles are divided
// by the page dimension; when the dimension is unknown the rectangle cannot be
// canonicalized and ok is false.
func Canonicalize(b geometry.Box, dim *extraction.PageDimension) (box CanonicalBox, space Space, ok bool) {
	space = Classify(b)
	if space == Normalized {
		return fromBox(b.Clamp(0, 1)), space, true
	}
	if !dim.Known() {
		return CanonicalBox{}, space, false
	}
	return fromBox(b.Scale(1/dim.Width, 1/dim.Height)), space, true
}
