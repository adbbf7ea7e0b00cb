package docai

import (
	"fmt"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/geometry"
	"google.golang.org/protobuf/encoding/protojson"
)

// ToDocumentResult maps the processor's entities onto the catalog. Every
// catalog field appears in the result, in catalog order, with an empty value
// when the processor did not return it. Entities of unknown type are ignored.
// When a type occurs more than once the most confident entity wins.
func ToDocumentResult(doc *documentaipb.Document, catalog extraction.Catalog) *extraction.DocumentResult {
	best := make(map[string]extraction.FieldResult)
	if doc != nil {
		walkEntities(doc.GetEntities(), func(e *documentaipb.Document_Entity) {
			name := fieldName(e.GetType())
			cp, ok := catalog.PageOf(name)
			if !ok {
				return
			}
			f := fieldFromEntity(name, e, cp.Index)
			if prev, seen := best[name]; seen && !better(f, prev) {
				return
			}
			best[name] = f
		})
	}

	dims := PageDimensions(doc)
	out := &extraction.DocumentResult{Pages: make([]extraction.PageResult, 0, len(catalog.Pages))}
	for _, cp := range catalog.Pages {
		page := extraction.PageResult{Index: cp.Index, Dimension: dims[cp.Index]}
		page.Fields = make([]extraction.FieldResult, 0, len(cp.Fields))
		for _, name := range cp.Fields {
			f, ok := best[name]
			if !ok {
				f = extraction.FieldResult{Name: name, Page: cp.Index}
			}
			page.Fields = append(page.Fields, f)
		}
		out.Pages = append(out.Pages, page)
	}
	return out
}

func walkEntities(entities []*documentaipb.Document_Entity, fn func(*documentaipb.Document_Entity)) {
	for _, e := range entities {
		if e == nil {
			continue
		}
		if e.GetType() != "" {
			fn(e)
		}
		walkEntities(e.GetProperties(), fn)
	}
}

// fieldName strips a parent prefix such as "applicant/FirstName".
func fieldName(entityType string) string {
	if i := strings.LastIndex(entityType, "/"); i >= 0 {
		return entityType[i+1:]
	}
	return entityType
}

func better(candidate, current extraction.FieldResult) bool {
	if current.Value == "" {
		return candidate.Value != "" || candidate.Confidence > current.Confidence
	}
	return candidate.Value != "" && candidate.Confidence > current.Confidence
}

func fieldFromEntity(name string, e *documentaipb.Document_Entity, catalogPage int) extraction.FieldResult {
	f := extraction.FieldResult{
		Name:       name,
		Value:      strings.TrimSpace(e.GetMentionText()),
		Confidence: float64(e.GetConfidence()),
		Page:       catalogPage,
	}
	if nv := e.GetNormalizedValue(); nv != nil && f.Value == "" {
		f.Value = strings.TrimSpace(nv.GetText())
	}

	refs := e.GetPageAnchor().GetPageRefs()
	if len(refs) == 0 {
		return f
	}
	ref := refs[0]
	if ref.GetPage() > 0 {
		f.Page = int(ref.GetPage())
	}
	f.Box = boxFromPoly(ref.GetBoundingPoly())
	return f
}

// boxFromPoly prefers normalized vertices and falls back to pixel vertices.
func boxFromPoly(poly *documentaipb.BoundingPoly) *extraction.RawBox {
	if nv := poly.GetNormalizedVertices(); len(nv) >= 2 {
		pts := make([]geometry.Point, len(nv))
		for i, v := range nv {
			pts[i] = geometry.Point{X: float64(v.GetX()), Y: float64(v.GetY())}
		}
		return extraction.VertexList(pts...)
	}
	if vs := poly.GetVertices(); len(vs) >= 2 {
		pts := make([]geometry.Point, len(vs))
		for i, v := range vs {
			pts[i] = geometry.Point{X: float64(v.GetX()), Y: float64(v.GetY())}
		}
		return extraction.VertexList(pts...)
	}
	return nil
}

// PageDimensions returns the natural size of each page, keyed by 0-based index.
func PageDimensions(doc *documentaipb.Document) map[int]*extraction.PageDimension {
	dims := make(map[int]*extraction.PageDimension)
	for i, p := range doc.GetPages() {
		d := p.GetDimension()
		if d == nil || d.GetWidth() <= 0 || d.GetHeight() <= 0 {
			continue
		}
		dims[pageIndex(p, i)] = &extraction.PageDimension{
			Width:  float64(d.GetWidth()),
			Height: float64(d.GetHeight()),
			Unit:   d.GetUnit(),
		}
	}
	return dims
}

// PageImages returns the rendered page images the processor sent back, keyed
// by 0-based index.
func PageImages(doc *documentaipb.Document) map[int][]byte {
	images := make(map[int][]byte)
	for i, p := range doc.GetPages() {
		if content := p.GetImage().GetContent(); len(content) > 0 {
			images[pageIndex(p, i)] = content
		}
	}
	return images
}

func pageIndex(p *documentaipb.Document_Page, position int) int {
	if n := p.GetPageNumber(); n > 0 {
		return int(n) - 1
	}
	return position
}

// DumpJSON renders the raw processor response for debugging.
func DumpJSON(doc *documentaipb.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("no document")
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
