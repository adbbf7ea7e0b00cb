package extraction

// Summary reports how much of a document the extractor managed to read.
type Summary struct {
	TotalPages            int     `json:"total_pages"`
	SuccessfulPages       int     `json:"successful_pages"`
	FailedPages           int     `json:"failed_pages"`
	FieldsFound           int     `json:"fields_found"`
	FieldsMissing         int     `json:"fields_missing"`
	AverageConfidence     float64 `json:"average_confidence"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	ExtractorUsed         string  `json:"extractor_used"`
}

// Summarize counts pages with at least one extracted value and averages the
// confidence of every field that has a value.
func Summarize(doc *DocumentResult) Summary {
	var s Summary
	if doc == nil {
		return s
	}
	var sum float64
	s.TotalPages = len(doc.Pages)
	for _, p := range doc.Pages {
		pageHasValue := false
		for _, f := range p.Fields {
			if f.Value == "" {
				s.FieldsMissing++
				continue
			}
			pageHasValue = true
			s.FieldsFound++
			sum += f.Confidence
		}
		if pageHasValue {
			s.SuccessfulPages++
		}
	}
	s.FailedPages = s.TotalPages - s.SuccessfulPages
	if s.FieldsFound > 0 {
		s.AverageConfidence = sum / float64(s.FieldsFound)
	}
	return s
}
