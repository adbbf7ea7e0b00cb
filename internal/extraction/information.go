package extraction

import (
	"bytes"
	"encoding/json"
)

// Information renders a document as catalog pages keyed by page name, each an
// object of catalog fields in catalog order. Fields without a value are null.
type Information struct {
	catalog   Catalog
	doc       *DocumentResult
	threshold float64
}

// NewInformation binds a document to the catalog it was extracted with.
// Fields below threshold are marked low_confidence.
func NewInformation(c Catalog, doc *DocumentResult, threshold float64) Information {
	return Information{catalog: c, doc: doc, threshold: threshold}
}

type infoField struct {
	Value         string  `json:"value"`
	Confidence    float64 `json:"confidence"`
	Page          int     `json:"page"`
	BoundingBox   *RawBox `json:"bounding_box"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (in Information) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cp := range in.catalog.Pages {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(cp.Key)
		buf.Write(key)
		buf.WriteString(":{")

		page, _ := in.doc.Page(cp.Index)
		for j, name := range cp.Fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			nameKey, _ := json.Marshal(name)
			buf.Write(nameKey)
			buf.WriteByte(':')

			var f FieldResult
			var ok bool
			if page != nil {
				f, ok = page.Field(name)
			}
			if !ok || f.Value == "" {
				buf.WriteString("null")
				continue
			}
			out := infoField{
				Value:         f.Value,
				Confidence:    f.Confidence,
				Page:          f.Page,
				LowConfidence: f.Confidence < in.threshold,
			}
			if f.Box != nil {
				b := f.Box.Bounds()
				out.BoundingBox = PointRect(b.MinX, b.MinY, b.Width(), b.Height())
			}
			val, err := json.Marshal(out)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
