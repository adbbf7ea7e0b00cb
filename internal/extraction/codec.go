package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/kyclens/internal/geometry"
)

var errMalformedBox = errors.New("malformed bounding box")

type wireField struct {
	Value       *string         `json:"value"`
	Confidence  *float64        `json:"confidence"`
	Page        *int            `json:"page"`
	Box         json.RawMessage `json:"box"`
	BoundingBox json.RawMessage `json:"bounding_box"`
}

type wireBox struct {
	X                  *float64         `json:"x"`
	Y                  *float64         `json:"y"`
	Width              *float64         `json:"width"`
	Height             *float64         `json:"height"`
	Vertices           []geometry.Point `json:"vertices"`
	NormalizedVertices []geometry.Point `json:"normalized_vertices"`
}

type wirePage struct {
	Index     *int            `json:"page_index"`
	Dimension *PageDimension  `json:"page_dimension"`
	Fields    json.RawMessage `json:"fields"`
}

type wireDocument struct {
	Pages []json.RawMessage `json:"pages"`
}

// ParseDocument decodes an extractor response. Field order inside each page
// is preserved. Individual fields that are malformed are dropped; only a
// structurally broken document returns an error.
func ParseDocument(data []byte) (*DocumentResult, error) {
	var doc DocumentResult
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DocumentResult) UnmarshalJSON(data []byte) error {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	d.Pages = make([]PageResult, 0, len(w.Pages))
	for i, raw := range w.Pages {
		page, err := decodePage(raw, i)
		if err != nil {
			return fmt.Errorf("decode page %d: %w", i, err)
		}
		d.Pages = append(d.Pages, page)
	}
	return nil
}

func decodePage(raw json.RawMessage, position int) (PageResult, error) {
	var w wirePage
	if err := json.Unmarshal(raw, &w); err != nil {
		return PageResult{}, err
	}
	page := PageResult{Index: position}
	if w.Index != nil && *w.Index >= 0 {
		page.Index = *w.Index
	}
	if w.Dimension.Known() {
		page.Dimension = w.Dimension
	}
	fields, err := decodeFields(w.Fields, page.Index)
	if err != nil {
		return PageResult{}, err
	}
	page.Fields = fields
	return page, nil
}

// decodeFields walks a JSON object token by token so the extractor's key
// order survives. A repeated key keeps its first position and its last value.
func decodeFields(raw json.RawMessage, pageIndex int) ([]FieldResult, error) {
	if isNull(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("fields: expected object, got %v", tok)
	}

	var fields []FieldResult
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("fields: unexpected key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("fields: %s: %w", name, err)
		}

		field, err := decodeField(name, value, pageIndex)
		if err != nil {
			slog.Debug("dropping malformed field", "field", name, "page", pageIndex, "error", err)
			continue
		}
		if i, dup := seen[name]; dup {
			fields[i] = field
			continue
		}
		seen[name] = len(fields)
		fields = append(fields, field)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeField(name string, raw json.RawMessage, pageIndex int) (FieldResult, error) {
	var w wireField
	if err := json.Unmarshal(raw, &w); err != nil {
		return FieldResult{}, err
	}
	if w.Value == nil {
		return FieldResult{}, errors.New("missing value")
	}
	f := FieldResult{Name: name, Value: *w.Value, Page: pageIndex}
	if w.Confidence != nil {
		f.Confidence = geometry.ClampFloat(*w.Confidence, 0, 1)
	}
	if w.Page != nil {
		if *w.Page < 0 {
			return FieldResult{}, fmt.Errorf("negative page %d", *w.Page)
		}
		f.Page = *w.Page
	}

	boxRaw := w.BoundingBox
	if isNull(boxRaw) {
		boxRaw = w.Box
	}
	box, err := decodeBox(boxRaw)
	if err != nil {
		return FieldResult{}, err
	}
	f.Box = box
	return f, nil
}

func decodeBox(raw json.RawMessage) (*RawBox, error) {
	if isNull(raw) {
		return nil, nil
	}
	raw = bytes.TrimSpace(raw)

	var box *RawBox
	switch raw[0] {
	case '[':
		var pts []geometry.Point
		if err := json.Unmarshal(raw, &pts); err != nil {
			return nil, err
		}
		box = VertexList(pts...)
	case '{':
		var w wireBox
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		switch {
		case len(w.NormalizedVertices) > 0:
			box = VertexList(w.NormalizedVertices...)
		case len(w.Vertices) > 0:
			box = VertexList(w.Vertices...)
		case w.X != nil && w.Y != nil && w.Width != nil && w.Height != nil:
			box = PointRect(*w.X, *w.Y, *w.Width, *w.Height)
		default:
			return nil, errMalformedBox
		}
	default:
		return nil, errMalformedBox
	}
	if !box.valid() {
		return nil, errMalformedBox
	}
	return box, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// MarshalJSON implements json.Marshaler.
func (b *RawBox) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	if b.Kind == BoxVertexList {
		return json.Marshal(b.Vertices)
	}
	return json.Marshal(struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}{b.X, b.Y, b.Width, b.Height})
}

// MarshalJSON implements json.Marshaler.
func (f FieldResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value       string  `json:"value"`
		Confidence  float64 `json:"confidence"`
		Page        int     `json:"page"`
		BoundingBox *RawBox `json:"bounding_box"`
	}{f.Value, f.Confidence, f.Page, f.Box})
}

// MarshalJSON writes the fields as an object in their original order.
func (p PageResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"page_index":`)
	fmt.Fprintf(&buf, "%d", p.Index)
	if p.Dimension != nil {
		dim, err := json.Marshal(p.Dimension)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"page_dimension":`)
		buf.Write(dim)
	}
	buf.WriteString(`,"fields":`)
	if err := writeOrderedFields(&buf, p.Fields); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeOrderedFields(buf *bytes.Buffer, fields []FieldResult) error {
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}
