package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/kyclens/internal/pipeline"
	"github.com/MeKo-Tech/kyclens/internal/testutil"
)

type testServer struct {
	srv       *Server
	handler   http.Handler
	extractor *pipeline.StaticExtractor
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	ext := pipeline.NewStaticExtractor(testutil.SampleResult())
	p, err := pipeline.NewBuilder().WithExtractor(ext).Build()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := NewServer(cfg, p)
	require.NoError(t, err)
	return &testServer{srv: srv, handler: srv.Handler(), extractor: ext}
}

// uploadRequest builds a multipart POST to the process endpoint. Extra form
// fields are added after the file.
func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// processSample uploads a 500x1000 form image and returns the document id.
func (ts *testServer) processSample(t *testing.T) string {
	t.Helper()
	rec := ts.do(uploadRequest(t, "form.png", testutil.FormPNG(500, 1000), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RequestID)
	return resp.RequestID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
