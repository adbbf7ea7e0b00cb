// Package normalize turns extractor field maps into display entities with
// canonical bounding boxes.
package normalize

import (
	"github.com/MeKo-Tech/kyclens/internal/coords"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/geometry"
)

// Entity is a named, valued, located field ready for display.
type Entity struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`

	// Box is set once the source rectangle has been canonicalized. It stays
	// nil for absolute boxes whose page dimension was unknown at ingestion.
	Box *coords.CanonicalBox `json:"box,omitempty"`

	// Source is the raw box reduced to a rectangle, in extractor units.
	Source geometry.Box `json:"-"`
	Space  coords.Space `json:"-"`
}

// Resolve returns the canonical box, canonicalizing the source rectangle
// against dim if ingestion could not.
func (e Entity) Resolve(dim *extraction.PageDimension) (coords.CanonicalBox, bool) {
	if e.Box != nil {
		return *e.Box, true
	}
	c, _, ok := coords.Canonicalize(e.Source, dim)
	return c, ok
}

// Fields converts one page's ordered field map into entities. Fields without a
// value or a box are skipped. dim may be nil.
func Fields(fields []extraction.FieldResult, dim *extraction.PageDimension) []Entity {
	entities := make([]Entity, 0, len(fields))
	for _, f := range fields {
		if e, ok := entityFor(f, dim); ok {
			entities = append(entities, e)
		}
	}
	return entities
}

// Page normalizes a single page using its own dimension.
func Page(p extraction.PageResult) []Entity {
	return Fields(p.Fields, p.Dimension)
}

// Document normalizes every page and groups entities by the page they are
// drawn on. Each field is canonicalized against the dimension of its own page.
func Document(doc *extraction.DocumentResult) map[int][]Entity {
	out := make(map[int][]Entity)
	if doc == nil {
		return out
	}
	for _, p := range doc.Pages {
		for _, f := range p.Fields {
			var dim *extraction.PageDimension
			if target, ok := doc.Page(f.Page); ok {
				dim = target.Dimension
			}
			if e, ok := entityFor(f, dim); ok {
				out[e.Page] = append(out[e.Page], e)
			}
		}
	}
	return out
}

func entityFor(f extraction.FieldResult, dim *extraction.PageDimension) (Entity, bool) {
	if !f.Found() {
		return Entity{}, false
	}
	src := f.Box.Bounds()
	e := Entity{
		Key:        f.Name,
		Label:      Label(f.Name),
		Value:      f.Value,
		Confidence: f.Confidence,
		Page:       f.Page,
		Source:     src,
	}
	c, space, ok := coords.Canonicalize(src, dim)
	e.Space = space
	if ok {
		e.Box = &c
	}
	return e, true
}
