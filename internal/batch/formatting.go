package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
)

type batchEntry struct {
	Path   string           `json:"path"`
	Error  string           `json:"error,omitempty"`
	Report *pipeline.Report `json:"report,omitempty"`
}

func formatBatchResults(items []Item, format string, c extraction.Catalog, threshold float64) (string, error) {
	switch strings.ToLower(format) {
	case "", pipeline.FormatJSON:
		return formatJSON(items, c, threshold)
	case pipeline.FormatText:
		return formatText(items, threshold)
	case pipeline.FormatCSV:
		return formatCSV(items, threshold)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatJSON(items []Item, c extraction.Catalog, threshold float64) (string, error) {
	entries := make([]batchEntry, 0, len(items))
	for _, it := range items {
		e := batchEntry{Path: it.Path}
		if it.Err != nil {
			e.Error = it.Err.Error()
		} else if it.Document != nil {
			r := pipeline.NewReport(it.Document, c, threshold)
			e.Report = &r
		}
		entries = append(entries, e)
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatText(items []Item, threshold float64) (string, error) {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "== %s ==\n", it.Path)
		if it.Err != nil {
			fmt.Fprintf(&b, "error: %v", it.Err)
			continue
		}
		txt, err := pipeline.ToPlainText(it.Document, threshold)
		if err != nil {
			return "", err
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

// formatCSV prefixes every row with the source file.
func formatCSV(items []Item, threshold float64) (string, error) {
	var b strings.Builder
	header := false
	for _, it := range items {
		if it.Err != nil || it.Document == nil {
			continue
		}
		out, err := pipeline.ToCSV(it.Document, threshold)
		if err != nil {
			return "", err
		}
		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		if !header {
			b.WriteString("file," + lines[0] + "\n")
			header = true
		}
		for _, l := range lines[1:] {
			b.WriteString(csvQuote(it.Path) + "," + l + "\n")
		}
	}
	return b.String(), nil
}

func csvQuote(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
