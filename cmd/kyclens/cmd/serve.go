package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/kyclens/internal/config"
	"github.com/MeKo-Tech/kyclens/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the extraction API",
	Long: `Start an HTTP server that provides REST endpoints for form extraction and a
websocket viewer that keeps overlays aligned with the displayed page.

The server provides the following endpoints:
  POST /api/v1/documents/process                       - Process an uploaded form
  GET  /api/v1/documents/{id}                          - Fetch a processed document
  GET  /api/v1/documents/{id}/pages/{page}/entities    - List a page's entities
  GET  /api/v1/documents/{id}/pages/{page}/overlay     - Project a page's boxes
  GET  /api/v1/documents/{id}/pages/{page}/overlay.png - Render a page with boxes
  GET  /api/v1/documents/{id}/export.pdf               - Export an annotated PDF
  GET  /api/v1/documents/{id}/viewer                   - Live viewer websocket
  GET  /health, /info, /metrics

Examples:
  kyclens serve
  kyclens serve --port 8080
  kyclens serve --host 0.0.0.0 --from-result sample.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyServeFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fromResult, _ := cmd.Flags().GetString("from-result")
		ext, closeExtractor, err := newExtractor(ctx, cfg, extractorOptions{FromResult: fromResult})
		if err != nil {
			return err
		}
		defer closeExtractor()

		p, closePipeline, err := newPipeline(ctx, cfg, ext, cfg.Extractor.ConfidenceThreshold)
		if err != nil {
			return err
		}
		defer closePipeline()

		srv, err := server.NewServer(serverConfig(cfg), p)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		httpServer := srv.HTTPServer()

		go func() {
			slog.Info("Starting kyclens server", "addr", httpServer.Addr, "extractor", p.ExtractorName())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second
		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// applyServeFlags overrides configuration values with flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeoutSec, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("confidence-threshold") {
		cfg.Extractor.ConfidenceThreshold, _ = f.GetFloat64("confidence-threshold")
	}
	if f.Changed("render-width") {
		cfg.Overlay.RenderWidth, _ = f.GetInt("render-width")
	}
	if f.Changed("rate-limit-enabled") {
		cfg.Server.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		cfg.Server.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		cfg.Server.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		cfg.Server.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		cfg.Server.RateLimit.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
	}
}

// serverConfig maps the loaded configuration onto server.Config.
func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		CORSOrigin:   cfg.Server.CORSOrigin,
		MaxUploadMB:  int64(cfg.Server.MaxUploadMB),
		TimeoutSec:   cfg.Server.TimeoutSec,
		RenderWidth:  cfg.Overlay.RenderWidth,
		PollInterval: cfg.PollInterval(),
		Style:        cfg.OverlayStyle(),
		Registry:     cfg.RegistrySettings(),
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimit.Enabled,
			RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     cfg.Server.RateLimit.MaxDataPerDay,
		},
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 300, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Float64("confidence-threshold", 0.5, "fields below this confidence are flagged (0..1)")
	serveCmd.Flags().Int("render-width", 1000, "page width in pixels for rendered overlays")
	serveCmd.Flags().String("from-result", "", "serve a saved extraction result instead of calling Document AI")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", 1<<30, "maximum data processed per day per client (bytes)")
}
