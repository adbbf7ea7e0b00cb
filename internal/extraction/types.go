// Package extraction defines the field-level result returned by the remote
// extractor and its JSON wire form.
package extraction

import (
	"math"

	"github.com/MeKo-Tech/kyclens/internal/geometry"
)

// BoxKind tags which shape a RawBox carries.
type BoxKind int

const (
	// BoxPointRect is an origin plus width and height.
	BoxPointRect BoxKind = iota + 1
	// BoxVertexList is a polygon given as two or more vertices.
	BoxVertexList
)

func (k BoxKind) String() string {
	switch k {
	case BoxPointRect:
		return "point-rect"
	case BoxVertexList:
		return "vertex-list"
	default:
		return "unknown"
	}
}

// RawBox is a bounding box exactly as the extractor emitted it. Neither shape
// says whether its numbers are page pixels or 0..1 fractions.
type RawBox struct {
	Kind     BoxKind
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Vertices []geometry.Point
}

// PointRect returns a point-rect RawBox.
func PointRect(x, y, w, h float64) *RawBox {
	return &RawBox{Kind: BoxPointRect, X: x, Y: y, Width: w, Height: h}
}

// VertexList returns a vertex-list RawBox.
func VertexList(pts ...geometry.Point) *RawBox {
	return &RawBox{Kind: BoxVertexList, Vertices: append([]geometry.Point(nil), pts...)}
}

// Bounds reduces the box to an axis-aligned rectangle in its own units.
// Vertex lists collapse to the min/max of their components.
func (b *RawBox) Bounds() geometry.Box {
	if b == nil {
		return geometry.Box{}
	}
	if b.Kind == BoxVertexList {
		return geometry.BoundingBox(b.Vertices)
	}
	return geometry.FromRect(b.X, b.Y, b.Width, b.Height)
}

func (b *RawBox) valid() bool {
	switch b.Kind {
	case BoxPointRect:
		return finite(b.X, b.Y, b.Width, b.Height)
	case BoxVertexList:
		if len(b.Vertices) < 2 {
			return false
		}
		for _, v := range b.Vertices {
			if !finite(v.X, v.Y) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PageDimension is a page's natural, unscaled size in the units the extractor
// used for absolute boxes.
type PageDimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit,omitempty"`
}

// Known reports whether the dimension can be used to rescale absolute boxes.
func (d *PageDimension) Known() bool {
	return d != nil && d.Width > 0 && d.Height > 0 && finite(d.Width, d.Height)
}

// FieldResult is one named field as returned by the extractor. Fields that
// were not located have an empty Value and a nil Box.
type FieldResult struct {
	Name       string
	Value      string
	Confidence float64
	Page       int
	Box        *RawBox
}

// Found reports whether the field has both a value and a location.
func (f FieldResult) Found() bool {
	return f.Value != "" && f.Box != nil
}

// PageResult holds the fields for one page in the order the extractor
// listed them.
type PageResult struct {
	Index     int
	Dimension *PageDimension
	Fields    []FieldResult
}

// Field looks up a field by its unmodified name.
func (p *PageResult) Field(name string) (FieldResult, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldResult{}, false
}

// DocumentResult is the per-document response shape.
type DocumentResult struct {
	Pages []PageResult `json:"pages"`
}

// Page returns the page with the given index.
func (d *DocumentResult) Page(index int) (*PageResult, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Pages {
		if d.Pages[i].Index == index {
			return &d.Pages[i], true
		}
	}
	return nil, false
}
