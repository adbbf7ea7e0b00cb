package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
)

// Output formats understood by Format.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

var errNilDocument = errors.New("nil document")

// Report is the serialized form of a processed document.
type Report struct {
	DocumentID           string                     `json:"document_id"`
	Filename             string                     `json:"filename"`
	ExtractedInformation extraction.Information     `json:"extracted_information"`
	Entities             map[int][]normalize.Entity `json:"entities"`
	Summary              extraction.Summary         `json:"summary"`
}

// NewReport assembles the report for doc.
func NewReport(doc *Document, c extraction.Catalog, threshold float64) Report {
	return Report{
		DocumentID:           doc.ID,
		Filename:             doc.Filename,
		ExtractedInformation: doc.Information(c, threshold),
		Entities:             doc.Entities,
		Summary:              doc.Summary,
	}
}

// Format renders doc in the named format.
func Format(doc *Document, format string, c extraction.Catalog, threshold float64) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return ToJSON(doc, c, threshold)
	case FormatText:
		return ToPlainText(doc, threshold)
	case FormatCSV:
		return ToCSV(doc, threshold)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// ToJSON serializes the report for doc to pretty JSON.
func ToJSON(doc *Document, c extraction.Catalog, threshold float64) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}
	b, err := json.MarshalIndent(NewReport(doc, c, threshold), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText lists every field with a value, page by page.
func ToPlainText(doc *Document, threshold float64) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}
	if doc.Result == nil {
		return "", nil
	}
	var b strings.Builder
	for _, page := range doc.Result.Pages {
		fmt.Fprintf(&b, "Page %d\n", page.Index+1)
		for _, f := range page.Fields {
			if f.Value == "" {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s (%.2f)", normalize.Label(f.Name), f.Value, f.Confidence)
			if f.Confidence < threshold {
				b.WriteString(" [low confidence]")
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ToCSV exports one row per catalog field with its canonical box when the
// field was located.
func ToCSV(doc *Document, threshold float64) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"page", "field", "label", "value", "confidence", "x0", "y0", "x1", "y1", "low_confidence"})
	if doc.Result != nil {
		for _, page := range doc.Result.Pages {
			for _, f := range page.Fields {
				_ = w.Write(csvRow(f, entityFor(doc, f), threshold))
			}
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func csvRow(f extraction.FieldResult, e *normalize.Entity, threshold float64) []string {
	row := []string{
		strconv.Itoa(f.Page + 1),
		f.Name,
		normalize.Label(f.Name),
		f.Value,
		fmt.Sprintf("%.3f", f.Confidence),
		"", "", "", "",
		strconv.FormatBool(f.Value != "" && f.Confidence < threshold),
	}
	if e != nil && e.Box != nil {
		row[5] = fmt.Sprintf("%.4f", e.Box.X0)
		row[6] = fmt.Sprintf("%.4f", e.Box.Y0)
		row[7] = fmt.Sprintf("%.4f", e.Box.X1)
		row[8] = fmt.Sprintf("%.4f", e.Box.Y1)
	}
	return row
}

func entityFor(doc *Document, f extraction.FieldResult) *normalize.Entity {
	for i, e := range doc.Entities[f.Page] {
		if e.Key == f.Name {
			return &doc.Entities[f.Page][i]
		}
	}
	return nil
}
