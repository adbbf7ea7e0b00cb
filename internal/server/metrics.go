package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kyclens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kyclens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	documentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kyclens_documents_processed_total",
			Help: "Total number of processed documents",
		},
		[]string{"status"}, // success, invalid, failed
	)

	extractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kyclens_extraction_duration_seconds",
			Help:    "Time spent validating, extracting and normalizing a document",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	fieldsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kyclens_fields_extracted_total",
			Help: "Catalog fields seen in extraction results",
		},
		[]string{"outcome"}, // found, missing
	)

	overlayRects = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kyclens_overlay_rects_projected",
			Help:    "Number of rectangles in a projected overlay",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kyclens_cache_lookups_total",
			Help: "Extraction cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kyclens_rate_limit_hits_total",
			Help: "Total number of rejected requests",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kyclens_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	viewerSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kyclens_viewer_sessions_active",
			Help: "Number of open live viewer sessions",
		},
	)

	viewerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kyclens_viewer_messages_total",
			Help: "Total number of live viewer messages",
		},
		[]string{"direction"}, // sent, received
	)
)
