package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
)

const defaultProcessTimeout = 5 * time.Minute

// processCmd extracts the fields of a single form.
var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Extract the fields of a single KYC form",
	Long: `Send one PDF or image to the extractor and print the normalized result.

Supported formats: PDF, PNG, JPEG, TIFF

Examples:
  kyclens process form.pdf
  kyclens process form.pdf --pages 1-2 --format text
  kyclens process scan.png --overlay-dir overlays/ --export-pdf annotated.pdf
  kyclens process scan.png --from-result saved.json --format csv`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runProcessCommand,
}

func runProcessCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	f := cmd.Flags()

	format := cfg.Output.Format
	if f.Changed("format") {
		format, _ = f.GetString("format")
	}
	overlayDir := cfg.Output.OverlayDir
	if f.Changed("overlay-dir") {
		overlayDir, _ = f.GetString("overlay-dir")
	}
	renderWidth := cfg.Overlay.RenderWidth
	if f.Changed("render-width") {
		renderWidth, _ = f.GetInt("render-width")
	}
	threshold := cfg.Extractor.ConfidenceThreshold
	if f.Changed("confidence-threshold") {
		threshold, _ = f.GetFloat64("confidence-threshold")
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("invalid confidence threshold: %v (must be between 0.0 and 1.0)", threshold)
	}
	pageRange, _ := f.GetString("pages")
	pages, err := document.ParsePageRange(pageRange)
	if err != nil {
		return fmt.Errorf("invalid --pages: %w", err)
	}
	outputFile, _ := f.GetString("output")
	exportPath, _ := f.GetString("export-pdf")
	fromResult, _ := f.GetString("from-result")
	dumpPath, _ := f.GetString("dump-raw")

	timeout := time.Duration(cfg.Extractor.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	opts := extractorOptions{FromResult: fromResult}
	if dumpPath != "" {
		dump, err := os.Create(dumpPath) //nolint:gosec // G304: user-provided output path
		if err != nil {
			return fmt.Errorf("failed to create raw dump file: %w", err)
		}
		defer func() { _ = dump.Close() }()
		opts.RawDump = dump
	}

	ext, closeExtractor, err := newExtractor(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeExtractor()

	p, closePipeline, err := newPipeline(ctx, cfg, ext, threshold)
	if err != nil {
		return err
	}
	defer closePipeline()

	upload, err := loadUpload(args[0])
	if err != nil {
		return err
	}
	doc, err := p.Process(ctx, upload, pages)
	if err != nil {
		return err
	}
	slog.Debug("Processed document",
		"file", upload.Filename, "pages", doc.PageCount(),
		"fields_found", doc.Summary.FieldsFound, "cached", doc.Cached)

	out, err := pipeline.Format(doc, format, p.Config().Catalog, threshold)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), outputFile, out); err != nil {
		return err
	}

	style := cfg.OverlayStyle()
	if overlayDir != "" {
		paths, err := doc.SaveOverlays(overlayDir, renderWidth, style)
		if err != nil {
			return fmt.Errorf("failed to save overlays: %w", err)
		}
		slog.Info("Saved overlay images", "dir", overlayDir, "count", len(paths))
	}
	if exportPath != "" {
		if err := exportPDF(doc, exportPath, style); err != nil {
			return err
		}
		slog.Info("Exported annotated PDF", "file", exportPath)
	}
	return nil
}

func exportPDF(doc *pipeline.Document, path string, style overlay.Style) error {
	pages, err := doc.ExportPages()
	if err != nil {
		return fmt.Errorf("failed to prepare export: %w", err)
	}
	data, err := overlay.ExportPDF(pages, style)
	if err != nil {
		return fmt.Errorf("failed to export PDF: %w", err)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		path += ".pdf"
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("pages", "", "pages to process, 1-based (e.g. 1-3 or 1,3)")
	processCmd.Flags().StringP("format", "f", "json", "output format: json, text, csv")
	processCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	processCmd.Flags().String("overlay-dir", "", "write one overlay PNG per page to this directory")
	processCmd.Flags().Int("render-width", 1000, "overlay image width in pixels")
	processCmd.Flags().String("export-pdf", "", "write an annotated PDF to this path")
	processCmd.Flags().Float64("confidence-threshold", 0.5, "fields below this confidence are flagged (0..1)")
	processCmd.Flags().String("from-result", "", "replay a saved extraction result instead of calling Document AI")
	processCmd.Flags().String("dump-raw", "", "write raw Document AI responses to this file")
}
