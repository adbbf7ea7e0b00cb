//nolint:lll
package config

// Config represents the complete configuration for kyclens. It covers every
// command (serve, process, overlay, batch) and is loaded from a config file,
// environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor" json:"extractor"`
	Overlay   OverlayConfig   `mapstructure:"overlay" yaml:"overlay" json:"overlay"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache" json:"cache"`
	Registry  RegistryConfig  `mapstructure:"registry" yaml:"registry" json:"registry"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host               string          `mapstructure:"host" yaml:"host" json:"host"`
	Port               int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin         string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB        int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec         int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeoutSec int             `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec" json:"shutdown_timeout_sec"`
	RateLimit          RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits and daily quotas.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// ExtractorConfig contains Document AI settings.
type ExtractorConfig struct {
	ProjectID           string  `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
	Location            string  `mapstructure:"location" yaml:"location" json:"location"`
	ProcessorID         string  `mapstructure:"processor_id" yaml:"processor_id" json:"processor_id"`
	ProcessorVersionID  string  `mapstructure:"processor_version_id" yaml:"processor_version_id" json:"processor_version_id"`
	CredentialsFile     string  `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
	Endpoint            string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	TimeoutSec          int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
	SkipHumanReview     bool    `mapstructure:"skip_human_review" yaml:"skip_human_review" json:"skip_human_review"`
}

// OverlayConfig contains overlay drawing and viewer settings.
type OverlayConfig struct {
	BoxColor       string `mapstructure:"box_color" yaml:"box_color" json:"box_color"`
	LabelColor     string `mapstructure:"label_color" yaml:"label_color" json:"label_color"`
	LineWidth      int    `mapstructure:"line_width" yaml:"line_width" json:"line_width"`
	ShowLabels     bool   `mapstructure:"show_labels" yaml:"show_labels" json:"show_labels"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms" json:"poll_interval_ms"`
	RenderWidth    int    `mapstructure:"render_width" yaml:"render_width" json:"render_width"`
}

// CacheConfig contains the optional Redis result cache settings.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RedisURL  string `mapstructure:"redis_url" yaml:"redis_url" json:"redis_url"`
	TTLSec    int    `mapstructure:"ttl_sec" yaml:"ttl_sec" json:"ttl_sec"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
}

// RegistryConfig bounds the in-memory document registry.
type RegistryConfig struct {
	MaxDocuments int `mapstructure:"max_documents" yaml:"max_documents" json:"max_documents"`
	TTLSec       int `mapstructure:"ttl_sec" yaml:"ttl_sec" json:"ttl_sec"`
}

// OutputConfig contains CLI output settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns" json:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" json:"exclude_patterns"`
}
