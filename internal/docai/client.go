// Package docai talks to a Google Document AI custom extractor and converts
// its entities into extraction results.
package docai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// Config identifies the processor to call.
type Config struct {
	ProjectID          string
	Location           string
	ProcessorID        string
	ProcessorVersionID string
	CredentialsFile    string
	Endpoint           string
	Timeout            time.Duration
	SkipHumanReview    bool
}

// ProcessorName returns the resource name of the processor, or of a pinned
// processor version when one is configured.
func (c Config) ProcessorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
	if c.ProcessorVersionID != "" {
		name += "/processorVersions/" + c.ProcessorVersionID
	}
	return name
}

// APIEndpoint returns the regional endpoint unless one is configured.
func (c Config) APIEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("%s-documentai.googleapis.com:443", c.Location)
}

// Validate checks that the processor can be addressed.
func (c Config) Validate() error {
	switch {
	case c.ProjectID == "":
		return errors.New("extractor project id is required")
	case c.Location == "":
		return errors.New("extractor location is required")
	case c.ProcessorID == "":
		return errors.New("extractor processor id is required")
	}
	return nil
}

type documentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// Client sends documents to the configured processor.
type Client struct {
	cfg  Config
	proc documentProcessor
}

// NewClient dials the Document AI endpoint for cfg.Location.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithEndpoint(cfg.APIEndpoint())}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	proc, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &Client{cfg: cfg, proc: proc}, nil
}

// Config returns the client's configuration.
func (c *Client) Config() Config { return c.cfg }

// Process sends content to the processor and returns the annotated document.
// pages selects 0-based page indices; nil processes every page.
func (c *Client) Process(ctx context.Context, content []byte, mimeType string, pages []int) (*documentaipb.Document, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req := BuildRequest(c.cfg, content, mimeType, pages)
	start := time.Now()
	resp, err := c.proc.ProcessDocument(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		slog.Error("document processing failed", "processor", c.cfg.ProcessorID, "duration", elapsed, "error", err)
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	slog.Info("document processing completed", "processor", c.cfg.ProcessorID, "duration", elapsed)
	return resp.GetDocument(), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.proc.Close()
}

// BuildRequest assembles a ProcessRequest. The API numbers pages from 1.
func BuildRequest(cfg Config, content []byte, mimeType string, pages []int) *documentaipb.ProcessRequest {
	req := &documentaipb.ProcessRequest{
		Name: cfg.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: cfg.SkipHumanReview,
	}
	if len(pages) > 0 {
		oneBased := make([]int32, len(pages))
		for i, p := range pages {
			oneBased[i] = int32(p + 1) //nolint:gosec // G115: page lists are capped well below int32
		}
		req.ProcessOptions = &documentaipb.ProcessOptions{
			PageRange: &documentaipb.ProcessOptions_IndividualPageSelector_{
				IndividualPageSelector: &documentaipb.ProcessOptions_IndividualPageSelector{Pages: oneBased},
			},
		}
	}
	return req
}
