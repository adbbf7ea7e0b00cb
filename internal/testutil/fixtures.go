package testutil

import (
	"github.com/MeKo-Tech/kyclens/internal/extraction"
)

// SampleResultJSON is an extractor response covering both box shapes. On
// page 0, FirstName uses normalized vertices, LastName an absolute point
// rect against the page dimension, and MiddleName was not found. Page 1
// holds one normalized vertex list.
const SampleResultJSON = `{
  "pages": [
    {
      "page_index": 0,
      "page_dimension": {"width": 1000, "height": 2000, "unit": "pixels"},
      "fields": {
        "FirstName": {"value": "JANE", "confidence": 0.98, "bounding_box": [
          {"x": 0.1, "y": 0.1}, {"x": 0.4, "y": 0.1}, {"x": 0.4, "y": 0.15}, {"x": 0.1, "y": 0.15}]},
        "MiddleName": {"value": "", "confidence": 0, "bounding_box": null},
        "LastName": {"value": "DOE", "confidence": 0.42, "bounding_box": {"x": 100, "y": 400, "width": 300, "height": 100}}
      }
    },
    {
      "page_index": 1,
      "fields": {
        "Employer": {"value": "ACME LLC", "confidence": 0.9, "bounding_box": [
          {"x": 0.2, "y": 0.5}, {"x": 0.6, "y": 0.55}]}
      }
    }
  ]
}`

// SampleResult parses SampleResultJSON.
func SampleResult() *extraction.DocumentResult {
	doc, err := extraction.ParseDocument([]byte(SampleResultJSON))
	if err != nil {
		panic(err)
	}
	return doc
}
