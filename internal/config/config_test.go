package config

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "us", cfg.Extractor.Location)
	assert.InDelta(t, 0.5, cfg.Extractor.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.False(t, cfg.Cache.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"bad timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, "invalid timeout"},
		{"threshold too high", func(c *Config) { c.Extractor.ConfidenceThreshold = 1.5 }, "invalid confidence threshold"},
		{"bad poll interval", func(c *Config) { c.Overlay.PollIntervalMS = 0 }, "invalid poll interval"},
		{"bad color", func(c *Config) { c.Overlay.BoxColor = "red" }, "invalid box color"},
		{"cache without url", func(c *Config) { c.Cache.Enabled = true }, "redis_url"},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }, "invalid batch workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateExtractor(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.ValidateExtractor())

	cfg.Extractor.ProjectID = "proj"
	cfg.Extractor.ProcessorID = "abc123"
	require.NoError(t, cfg.ValidateExtractor())
	assert.Equal(t, "projects/proj/locations/us/processors/abc123", cfg.DocAIConfig().ProcessorName())
	assert.Equal(t, 300*time.Second, cfg.DocAIConfig().Timeout)
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.MaxUploadMB = 5
	cfg.Overlay.BoxColor = "#00FF00"
	cfg.Overlay.LineWidth = 4
	cfg.Overlay.ShowLabels = false
	cfg.Cache.RedisURL = "redis://localhost:6379/0"
	cfg.Registry.MaxDocuments = 7

	assert.Equal(t, int64(5<<20), cfg.UploadLimits().MaxBytes)

	style := cfg.OverlayStyle()
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, color.RGBAModel.Convert(style.BoxColor))
	assert.Equal(t, 4, style.LineWidth)
	assert.False(t, style.ShowLabels)

	cc := cfg.CacheSettings()
	assert.Equal(t, "redis://localhost:6379/0", cc.URL)
	assert.Equal(t, "kyclens:", cc.KeyPrefix)
	assert.Equal(t, time.Hour, cc.TTL)

	rc := cfg.RegistrySettings()
	assert.Equal(t, 7, rc.MaxEntries)
	assert.Equal(t, time.Hour, rc.TTL)
}
