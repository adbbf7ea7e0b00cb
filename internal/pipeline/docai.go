package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/MeKo-Tech/kyclens/internal/docai"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
)

// DocAIExtractor adapts a Document AI client to the Extractor interface.
type DocAIExtractor struct {
	client  *docai.Client
	catalog extraction.Catalog
	rawDump io.Writer
}

// NewDocAIExtractor maps processor output onto catalog.
func NewDocAIExtractor(client *docai.Client, catalog extraction.Catalog) *DocAIExtractor {
	return &DocAIExtractor{client: client, catalog: catalog}
}

// WithRawDump writes every raw processor response to w as JSON.
func (e *DocAIExtractor) WithRawDump(w io.Writer) *DocAIExtractor {
	e.rawDump = w
	return e
}

// Name returns the processor resource name.
func (e *DocAIExtractor) Name() string {
	return e.client.Config().ProcessorName()
}

// Extract implements Extractor.
func (e *DocAIExtractor) Extract(ctx context.Context, content []byte, mimeType string, pages []int) (*Extraction, error) {
	doc, err := e.client.Process(ctx, content, mimeType, pages)
	if err != nil {
		return nil, err
	}
	if e.rawDump != nil {
		dump, err := docai.DumpJSON(doc)
		if err != nil {
			return nil, fmt.Errorf("dump raw response: %w", err)
		}
		_, _ = fmt.Fprintln(e.rawDump, dump)
	}
	return &Extraction{
		Result:     docai.ToDocumentResult(doc, e.catalog),
		Dimensions: docai.PageDimensions(doc),
		Images:     docai.PageImages(doc),
	}, nil
}

// Close releases the underlying client.
func (e *DocAIExtractor) Close() error {
	return e.client.Close()
}
