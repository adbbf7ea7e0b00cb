package pipeline

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpProgressCallback(t *testing.T) {
	var cb ProgressCallback = NoOpProgressCallback{}
	cb.OnStart(10)
	cb.OnProgress(5, 10)
	cb.OnError(3, assert.AnError)
	cb.OnComplete()
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "batch: ").WithUpdateInterval(0)

	cb.OnStart(4)
	assert.Contains(t, buf.String(), "batch: 0/4 documents")

	buf.Reset()
	cb.OnProgress(2, 4)
	assert.Contains(t, buf.String(), "2/4 (50.0%)")

	buf.Reset()
	cb.OnError(3, assert.AnError)
	assert.Contains(t, buf.String(), "document 3 failed")

	buf.Reset()
	cb.OnComplete()
	assert.Contains(t, buf.String(), "batch: done in")
}

func TestConsoleProgressCallbackThrottles(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "").WithUpdateInterval(time.Hour)
	cb.OnStart(10)
	cb.OnProgress(1, 10)
	buf.Reset()
	cb.OnProgress(2, 10)
	assert.Empty(t, buf.String())
	cb.OnProgress(10, 10)
	assert.Contains(t, buf.String(), "10/10")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cb := NewLogProgressCallback(logger, 2)

	cb.OnStart(3)
	cb.OnProgress(1, 3)
	assert.NotContains(t, buf.String(), "batch progress")
	cb.OnProgress(2, 3)
	assert.Contains(t, buf.String(), "batch progress")
	cb.OnError(3, assert.AnError)
	cb.OnComplete()
	assert.Contains(t, buf.String(), "batch completed")
	assert.Contains(t, buf.String(), "batch item failed")
}
