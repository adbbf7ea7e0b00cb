package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/kyclens/internal/testutil"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// theExtractionServiceReturnsTheSampleResult keeps the default result.
func (testCtx *TestContext) theExtractionServiceReturnsTheSampleResult() error {
	testCtx.Result = testutil.SampleResult()
	return nil
}

// theExtractionServiceIsFailing makes every extraction fail.
func (testCtx *TestContext) theExtractionServiceIsFailing() error {
	testCtx.ExtractErr = errors.New("processor unavailable")
	return nil
}

// rateLimitingAllowsRequestsPerMinute enables the limiter.
func (testCtx *TestContext) rateLimitingAllowsRequestsPerMinute(n int) error {
	testCtx.Config.RateLimit.Enabled = true
	testCtx.Config.RateLimit.RequestsPerMinute = n
	testCtx.Config.RateLimit.RequestsPerHour = 1000
	testCtx.Config.RateLimit.MaxRequestsPerDay = 1000
	testCtx.Config.RateLimit.MaxDataPerDay = 1 << 30
	return nil
}

// upload posts a multipart form to the process endpoint.
func (testCtx *TestContext) upload(filename string, data []byte, fields map[string]string) error {
	if err := testCtx.ensureServer(); err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, testCtx.URL("/api/v1/documents/process"), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := testCtx.do(req); err != nil {
		return err
	}

	if testCtx.LastStatus == http.StatusOK {
		var resp struct {
			RequestID string `json:"request_id"`
		}
		if err := json.Unmarshal(testCtx.LastBody, &resp); err != nil {
			return fmt.Errorf("invalid process response: %w", err)
		}
		testCtx.DocumentID = resp.RequestID
	}
	return nil
}

// iUploadAFormImage uploads a generated PNG form.
func (testCtx *TestContext) iUploadAFormImage(width, height int) error {
	return testCtx.upload("form.png", testutil.FormPNG(width, height), nil)
}

// iUploadAFormImageWithField uploads a PNG form with one extra form field.
func (testCtx *TestContext) iUploadAFormImageWithField(name, value string) error {
	return testCtx.upload("form.png", testutil.FormPNG(500, 1000), map[string]string{name: value})
}

// iUploadAFileNamedContaining uploads arbitrary content.
func (testCtx *TestContext) iUploadAFileNamedContaining(filename, content string) error {
	return testCtx.upload(filename, []byte(content), nil)
}

// iUploadAFormImageTimes uploads the same form n times in a row.
func (testCtx *TestContext) iUploadAFormImageTimes(n int) error {
	for range n {
		if err := testCtx.iUploadAFormImage(100, 200); err != nil {
			return err
		}
	}
	return nil
}

// iRequest issues a GET; "{id}" is replaced with the last document ID.
func (testCtx *TestContext) iRequest(path string) error {
	if err := testCtx.ensureServer(); err != nil {
		return err
	}
	path = strings.ReplaceAll(path, "{id}", testCtx.DocumentID)
	req, err := http.NewRequest(http.MethodGet, testCtx.URL(path), nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastStatus = resp.StatusCode
	testCtx.LastBody = body
	testCtx.LastHeaders = resp.Header
	return nil
}

// theResponseStatusShouldBe checks the last HTTP status.
func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, testCtx.LastStatus, testCtx.LastBody)
	}
	return nil
}

// jsonField walks a dotted path through the last JSON body. Numeric
// segments index arrays; other segments are object keys.
func (testCtx *TestContext) jsonField(path string) (any, error) {
	var doc any
	if err := json.Unmarshal(testCtx.LastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %s", seg, path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %s", seg, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %s at %q", path, seg)
		}
	}
	return cur, nil
}

// theJSONFieldShouldEqual compares the printed value of a field.
func (testCtx *TestContext) theJSONFieldShouldEqual(path, want string) error {
	v, err := testCtx.jsonField(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", path, want, got)
	}
	return nil
}

// theJSONFieldShouldBeNull checks for an explicit null.
func (testCtx *TestContext) theJSONFieldShouldBeNull(path string) error {
	v, err := testCtx.jsonField(path)
	if err != nil {
		return err
	}
	if v != nil {
		return fmt.Errorf("expected %s to be null, got %v", path, v)
	}
	return nil
}

// theJSONFieldShouldBeAbsent checks that an omitted field is missing.
func (testCtx *TestContext) theJSONFieldShouldBeAbsent(path string) error {
	if v, err := testCtx.jsonField(path); err == nil {
		return fmt.Errorf("expected %s to be absent, got %v", path, v)
	}
	return nil
}

// theJSONFieldShouldHaveItems checks the length of an array field.
func (testCtx *TestContext) theJSONFieldShouldHaveItems(path string, n int) error {
	v, err := testCtx.jsonField(path)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected %s to be an array, got %T", path, v)
	}
	if len(items) != n {
		return fmt.Errorf("expected %s to have %d items, got %d", path, n, len(items))
	}
	return nil
}

// theErrorCodeShouldBe checks the error envelope.
func (testCtx *TestContext) theErrorCodeShouldBe(code string) error {
	if err := testCtx.theJSONFieldShouldEqual("success", "false"); err != nil {
		return err
	}
	return testCtx.theJSONFieldShouldEqual("error.code", code)
}

// theResponseHeaderShouldBe checks a response header.
func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHeaders.Get(name); got != want {
		return fmt.Errorf("expected header %s to be %q, got %q", name, want, got)
	}
	return nil
}

// theResponseBodyShouldStartWith checks a raw body prefix.
func (testCtx *TestContext) theResponseBodyShouldStartWith(prefix string) error {
	if !bytes.HasPrefix(testCtx.LastBody, []byte(prefix)) {
		n := min(len(testCtx.LastBody), 16)
		return fmt.Errorf("expected body to start with %q, got %q", prefix, testCtx.LastBody[:n])
	}
	return nil
}

// theExtractorShouldHaveBeenCalledTimes checks how often extraction ran.
func (testCtx *TestContext) theExtractorShouldHaveBeenCalledTimes(n int) error {
	if got := testCtx.Extractor.Calls(); got != n {
		return fmt.Errorf("expected %d extractor calls, got %d", n, got)
	}
	return nil
}

// RegisterAPISteps registers the HTTP step definitions.
func (testCtx *TestContext) RegisterAPISteps(sc *godog.ScenarioContext) {
	sc.Step(`^the extraction service returns the sample result$`, testCtx.theExtractionServiceReturnsTheSampleResult)
	sc.Step(`^the extraction service is failing$`, testCtx.theExtractionServiceIsFailing)
	sc.Step(`^rate limiting allows (\d+) requests? per minute$`, testCtx.rateLimitingAllowsRequestsPerMinute)

	sc.Step(`^I upload a (\d+)x(\d+) form image$`, testCtx.iUploadAFormImage)
	sc.Step(`^I upload a form image with "([^"]*)" set to "([^"]*)"$`, testCtx.iUploadAFormImageWithField)
	sc.Step(`^I upload a file named "([^"]*)" containing "([^"]*)"$`, testCtx.iUploadAFileNamedContaining)
	sc.Step(`^I upload a form image (\d+) times$`, testCtx.iUploadAFormImageTimes)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should equal "([^"]*)"$`, testCtx.theJSONFieldShouldEqual)
	sc.Step(`^the JSON field "([^"]*)" should be null$`, testCtx.theJSONFieldShouldBeNull)
	sc.Step(`^the JSON field "([^"]*)" should be absent$`, testCtx.theJSONFieldShouldBeAbsent)
	sc.Step(`^the JSON field "([^"]*)" should have (\d+) items?$`, testCtx.theJSONFieldShouldHaveItems)
	sc.Step(`^the error code should be "([^"]*)"$`, testCtx.theErrorCodeShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response body should start with "([^"]*)"$`, testCtx.theResponseBodyShouldStartWith)
	sc.Step(`^the extractor should have been called (\d+) times?$`, testCtx.theExtractorShouldHaveBeenCalledTimes)
}
