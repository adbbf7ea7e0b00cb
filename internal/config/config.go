// Package config loads and validates kyclens configuration.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/cache"
	"github.com/MeKo-Tech/kyclens/internal/docai"
	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/registry"
	"github.com/MeKo-Tech/kyclens/internal/viewer"
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:               "localhost",
			Port:               8080,
			CORSOrigin:         "*",
			MaxUploadMB:        20,
			TimeoutSec:         300,
			ShutdownTimeoutSec: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     1 << 30,
			},
		},
		Extractor: ExtractorConfig{
			Location:            "us",
			TimeoutSec:          300,
			ConfidenceThreshold: 0.5,
			SkipHumanReview:     true,
		},
		Overlay: OverlayConfig{
			BoxColor:       "#DC2626",
			LabelColor:     "#FFFFFF",
			LineWidth:      2,
			ShowLabels:     true,
			PollIntervalMS: int(viewer.DefaultPollInterval / time.Millisecond),
			RenderWidth:    1000,
		},
		Cache: CacheConfig{
			TTLSec:    3600,
			KeyPrefix: "kyclens:",
		},
		Registry: RegistryConfig{
			MaxDocuments: registry.DefaultMaxEntries,
			TTLSec:       int(registry.DefaultTTL / time.Second),
		},
		Output: OutputConfig{Format: "json"},
		Batch:  BatchConfig{Workers: 4},
	}
}

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"json", "text", "csv"}
)

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if err := validateThreshold(c.Extractor.ConfidenceThreshold, "confidence threshold"); err != nil {
		return err
	}
	if c.Overlay.PollIntervalMS <= 0 {
		return fmt.Errorf("invalid poll interval: %d (must be positive)", c.Overlay.PollIntervalMS)
	}
	if c.Overlay.LineWidth < 0 {
		return fmt.Errorf("invalid line width: %d", c.Overlay.LineWidth)
	}
	for name, hex := range map[string]string{"box color": c.Overlay.BoxColor, "label color": c.Overlay.LabelColor} {
		if hex != "" && overlay.ParseHexColor(hex) == nil {
			return fmt.Errorf("invalid %s: %q (want #RRGGBB)", name, hex)
		}
	}
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache enabled but redis_url is empty")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// ValidateExtractor checks the settings needed to call Document AI.
func (c *Config) ValidateExtractor() error {
	return c.DocAIConfig().Validate()
}

// DocAIConfig converts the extractor section.
func (c *Config) DocAIConfig() docai.Config {
	return docai.Config{
		ProjectID:          c.Extractor.ProjectID,
		Location:           c.Extractor.Location,
		ProcessorID:        c.Extractor.ProcessorID,
		ProcessorVersionID: c.Extractor.ProcessorVersionID,
		CredentialsFile:    c.Extractor.CredentialsFile,
		Endpoint:           c.Extractor.Endpoint,
		Timeout:            time.Duration(c.Extractor.TimeoutSec) * time.Second,
		SkipHumanReview:    c.Extractor.SkipHumanReview,
	}
}

// UploadLimits converts the server upload limit.
func (c *Config) UploadLimits() document.Limits {
	return document.Limits{
		MaxBytes: int64(c.Server.MaxUploadMB) << 20,
		MaxPages: document.DefaultMaxPages,
	}
}

// OverlayStyle converts the overlay section, falling back to defaults for
// colors that are unset.
func (c *Config) OverlayStyle() overlay.Style {
	style := overlay.DefaultStyle()
	if col := overlay.ParseHexColor(c.Overlay.BoxColor); col != nil {
		style.BoxColor = col
	}
	if col := overlay.ParseHexColor(c.Overlay.LabelColor); col != nil {
		style.LabelColor = col
	}
	if c.Overlay.LineWidth > 0 {
		style.LineWidth = c.Overlay.LineWidth
	}
	style.ShowLabels = c.Overlay.ShowLabels
	return style
}

// PollInterval returns the viewer poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Overlay.PollIntervalMS) * time.Millisecond
}

// CacheSettings converts the cache section.
func (c *Config) CacheSettings() cache.Config {
	return cache.Config{
		URL:       c.Cache.RedisURL,
		KeyPrefix: c.Cache.KeyPrefix,
		TTL:       time.Duration(c.Cache.TTLSec) * time.Second,
	}
}

// RegistrySettings converts the registry section.
func (c *Config) RegistrySettings() registry.Config {
	return registry.Config{
		MaxEntries: c.Registry.MaxDocuments,
		TTL:        time.Duration(c.Registry.TTLSec) * time.Second,
	}
}

func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
