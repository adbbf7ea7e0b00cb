package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kyclens.yaml")
	content := `
log_level: debug
server:
  port: 9090
extractor:
  project_id: proj
  processor_id: proc
  confidence_threshold: 0.7
overlay:
  box_color: "#0000FF"
batch:
  workers: 2
  include_patterns: ["*.pdf"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "proj", cfg.Extractor.ProjectID)
	assert.InDelta(t, 0.7, cfg.Extractor.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "us", cfg.Extractor.Location)
	assert.Equal(t, "#0000FF", cfg.Overlay.BoxColor)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, []string{"*.pdf"}, cfg.Batch.IncludePatterns)
}

func TestLoadWithFileMissing(t *testing.T) {
	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyclens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: xml\n"), 0o600))

	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyclens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))
	t.Setenv("KYCLENS_SERVER_PORT", "7070")
	t.Setenv("KYCLENS_EXTRACTOR_LOCATION", "eu")

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "eu", cfg.Extractor.Location)
}

func TestGenerateDefaultConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyclens.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
	assert.Equal(t, DefaultConfig().Overlay, cfg.Overlay)
}

func TestToYAML(t *testing.T) {
	data, err := ToYAML(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(data), "confidence_threshold: 0.5")
	assert.Contains(t, string(data), "max_documents: 100")
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/tmp/xdg", "kyclens"))
	assert.Equal(t, "/etc/kyclens", paths[len(paths)-1])
}
