// Package support holds the godog step definitions for the HTTP API suite.
// The server runs in-process behind httptest with a static extractor, so
// the scenarios never reach Document AI.
package support

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
	"github.com/MeKo-Tech/kyclens/internal/server"
	"github.com/MeKo-Tech/kyclens/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Server setup, applied when the first request is made.
	Result     *extraction.DocumentResult
	ExtractErr error
	Config     server.Config

	Extractor *pipeline.StaticExtractor
	Server    *httptest.Server

	// HTTP response state
	LastStatus  int
	LastBody    []byte
	LastHeaders http.Header
	DocumentID  string

	// Viewer state
	Viewer      *websocket.Conn
	LastMessage server.ViewerMessage
}

// NewTestContext returns a context serving the sample extraction result.
func NewTestContext() *TestContext {
	cfg := server.DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	return &TestContext{
		Result: testutil.SampleResult(),
		Config: cfg,
	}
}

// ensureServer starts the server on first use.
func (testCtx *TestContext) ensureServer() error {
	if testCtx.Server != nil {
		return nil
	}
	testCtx.Extractor = pipeline.NewStaticExtractor(testCtx.Result)
	testCtx.Extractor.Err = testCtx.ExtractErr

	p, err := pipeline.NewBuilder().WithExtractor(testCtx.Extractor).Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	srv, err := server.NewServer(testCtx.Config, p)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.Server = httptest.NewServer(srv.Handler())
	return nil
}

// URL returns the absolute URL for path on the test server.
func (testCtx *TestContext) URL(path string) string {
	return testCtx.Server.URL + path
}

// Cleanup closes the viewer connection and the server.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.Viewer != nil {
		errs = append(errs, testCtx.Viewer.Close())
		testCtx.Viewer = nil
	}
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
	return errors.Join(errs...)
}
