// Package server exposes document processing and overlays over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
	"github.com/MeKo-Tech/kyclens/internal/registry"
	"github.com/MeKo-Tech/kyclens/internal/viewer"
)

// Processor is the part of the pipeline the server needs.
type Processor interface {
	Process(ctx context.Context, upload document.Upload, pages []int) (*pipeline.Document, error)
	Config() pipeline.Config
	ExtractorName() string
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxUploadMB  int64
	TimeoutSec   int
	RenderWidth  int
	PollInterval time.Duration
	Style        overlay.Style
	Registry     registry.Config
	RateLimit    RateLimitConfig
}

// RateLimitConfig configures the limiter in front of document processing.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		CORSOrigin:   "*",
		MaxUploadMB:  20,
		TimeoutSec:   300,
		RenderWidth:  1000,
		PollInterval: viewer.DefaultPollInterval,
		Style:        overlay.DefaultStyle(),
		Registry:     registry.Config{MaxEntries: registry.DefaultMaxEntries, TTL: registry.DefaultTTL},
	}
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	processor   Processor
	docs        *registry.Registry[*storedDocument]
	rateLimiter *RateLimiter
	cfg         Config
}

type storedDocument struct {
	doc         *pipeline.Document
	mode        string
	threshold   float64
	processedAt time.Time
}

// NewServer creates a server around p.
func NewServer(cfg Config, p Processor) (*Server, error) {
	if p == nil {
		return nil, errors.New("server requires a processor")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultConfig().MaxUploadMB
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = DefaultConfig().TimeoutSec
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = viewer.DefaultPollInterval
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s := &Server{
		processor: p,
		docs:      registry.New[*storedDocument](cfg.Registry),
		cfg:       cfg,
	}
	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit)
	}
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.corsMiddleware)
	r.Use(instrument)

	r.Get("/health", s.healthHandler)
	r.Get("/info", s.infoHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.rateLimitMiddleware).Post("/documents/process", s.processHandler)
		r.Get("/documents/{id}", s.documentHandler)
		r.Get("/documents/{id}/pages/{page}/entities", s.entitiesHandler)
		r.Get("/documents/{id}/pages/{page}/overlay", s.overlayHandler)
		r.Get("/documents/{id}/pages/{page}/overlay.png", s.overlayImageHandler)
		r.Get("/documents/{id}/export.pdf", s.exportHandler)
		r.Get("/documents/{id}/viewer", s.viewerHandler)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, CodeValidation, "method not allowed", nil)
	})
	return r
}

// HTTPServer returns an http.Server for Addr with timeouts from the config.
func (s *Server) HTTPServer() *http.Server {
	timeout := time.Duration(s.cfg.TimeoutSec) * time.Second
	return &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// InfoResponse is returned by /info.
type InfoResponse struct {
	APIName         string              `json:"api_name"`
	Version         string              `json:"version"`
	Description     string              `json:"description"`
	ProcessorInfo   ProcessorInfo       `json:"processor_info"`
	SupportedFields map[string][]string `json:"supported_fields"`
}

// ProcessorInfo describes the configured extractor.
type ProcessorInfo struct {
	Name                string   `json:"name"`
	Extractor           string   `json:"extractor"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	MaxUploadBytes      int64    `json:"max_upload_bytes"`
	MaxPages            int      `json:"max_pages"`
	SupportedFormats    []string `json:"supported_formats"`
}

// ProcessResponse is returned by document processing and lookup.
type ProcessResponse struct {
	RequestID            string                     `json:"request_id"`
	Filename             string                     `json:"filename"`
	ProcessingMode       string                     `json:"processing_mode"`
	Cached               bool                       `json:"cached"`
	PageCount            int                        `json:"page_count"`
	ExtractedInformation extraction.Information     `json:"extracted_information"`
	Entities             map[int][]normalize.Entity `json:"entities"`
	Summary              extraction.Summary         `json:"summary"`
	Timestamp            string                     `json:"timestamp"`
}

// EntitiesResponse lists one page's entities.
type EntitiesResponse struct {
	DocumentID string             `json:"document_id"`
	Page       int                `json:"page"`
	Entities   []normalize.Entity `json:"entities"`
}

// OverlayResponse lists one page's projected rectangles.
type OverlayResponse struct {
	DocumentID string               `json:"document_id"`
	Page       int                  `json:"page"`
	Rendered   overlay.RenderedSize `json:"rendered"`
	Rects      []overlay.ScreenRect `json:"rects"`
}
