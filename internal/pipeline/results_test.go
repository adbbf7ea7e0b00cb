package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/testutil"
)

func processedSample(t *testing.T) *Document {
	t.Helper()
	p := buildPipeline(t, NewStaticExtractor(testutil.SampleResult()), nil)
	doc, err := p.Process(context.Background(), pngUpload(40, 40), nil)
	require.NoError(t, err)
	return doc
}

func TestToJSON(t *testing.T) {
	doc := processedSample(t)
	s, err := ToJSON(doc, extraction.KYCCatalog(), 0.5)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &back))
	assert.Equal(t, doc.ID, back["document_id"])
	info := back["extracted_information"].(map[string]any)
	pageOne := info["page_one"].(map[string]any)
	assert.Nil(t, pageOne["MiddleName"])
	last := pageOne["LastName"].(map[string]any)
	assert.Equal(t, true, last["low_confidence"])
	assert.Contains(t, back, "summary")

	_, err = ToJSON(nil, extraction.KYCCatalog(), 0.5)
	assert.Error(t, err)
}

func TestToPlainText(t *testing.T) {
	txt, err := ToPlainText(processedSample(t), 0.5)
	require.NoError(t, err)
	lines := strings.Split(txt, "\n")
	assert.Equal(t, []string{
		"Page 1",
		"  First Name: JANE (0.98)",
		"  Last Name: DOE (0.42) [low confidence]",
		"Page 2",
		"  Employer: ACME LLC (0.90)",
	}, lines)
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(processedSample(t), 0.5)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "page,field,label,value,confidence,x0,y0,x1,y1,low_confidence", lines[0])
	assert.Equal(t, "1,FirstName,First Name,JANE,0.980,0.1000,0.1000,0.4000,0.1500,false", lines[1])
	assert.Equal(t, "1,MiddleName,Middle Name,,0.000,,,,,false", lines[2])
	assert.Equal(t, "1,LastName,Last Name,DOE,0.420,0.1000,0.2000,0.4000,0.2500,true", lines[3])
}

func TestFormat(t *testing.T) {
	doc := processedSample(t)
	for _, f := range []string{"", "json", "TEXT", "csv"} {
		out, err := Format(doc, f, extraction.KYCCatalog(), 0.5)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out)
	}
	_, err := Format(doc, "xml", extraction.KYCCatalog(), 0.5)
	assert.Error(t, err)
}
