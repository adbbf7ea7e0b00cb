package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/kyclens/internal/batch"
	"github.com/MeKo-Tech/kyclens/internal/config"
	"github.com/MeKo-Tech/kyclens/internal/document"
)

// batchCmd represents the batch command for parallel form processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Extract many KYC forms in parallel",
	Long: `Process multiple forms in parallel. Directories are searched for supported
files; use --recursive to descend into subdirectories.

Examples:
  kyclens batch forms/*.pdf
  kyclens batch forms/ --recursive --workers 8
  kyclens batch forms/ --format csv --output results.csv
  kyclens batch forms/ --include "*.pdf" --exclude "draft_*" --progress`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config with CLI
// flag overrides.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) (*batch.Config, error) {
	f := cmd.Flags()
	bc := batch.DefaultConfig()

	bc.Workers = cfg.Batch.Workers
	if f.Changed("workers") {
		bc.Workers, _ = f.GetInt("workers")
	}
	if bc.Workers <= 0 {
		bc.Workers = runtime.NumCPU()
	}

	bc.Recursive = cfg.Batch.Recursive
	if f.Changed("recursive") {
		bc.Recursive, _ = f.GetBool("recursive")
	}
	bc.IncludePatterns = cfg.Batch.IncludePatterns
	if f.Changed("include") {
		bc.IncludePatterns, _ = f.GetStringSlice("include")
	}
	bc.ExcludePatterns = cfg.Batch.ExcludePatterns
	if f.Changed("exclude") {
		bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	}

	bc.OverlayDir = cfg.Output.OverlayDir
	if f.Changed("overlay-dir") {
		bc.OverlayDir, _ = f.GetString("overlay-dir")
	}
	bc.RenderWidth = cfg.Overlay.RenderWidth
	if f.Changed("render-width") {
		bc.RenderWidth, _ = f.GetInt("render-width")
	}
	bc.Style = cfg.OverlayStyle()

	pageRange, _ := f.GetString("pages")
	pages, err := document.ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid --pages: %w", err)
	}
	bc.Pages = pages

	bc.ShowProgress, _ = f.GetBool("progress")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.Progress = cmd.ErrOrStderr()
	return &bc, nil
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc, err := configToBatchConfig(cfg, cmd)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	outputFile, _ := cmd.Flags().GetString("output")
	fromResult, _ := cmd.Flags().GetString("from-result")

	ctx := cmd.Context()
	ext, closeExtractor, err := newExtractor(ctx, cfg, extractorOptions{FromResult: fromResult})
	if err != nil {
		return err
	}
	defer closeExtractor()

	threshold := cfg.Extractor.ConfidenceThreshold
	p, closePipeline, err := newPipeline(ctx, cfg, ext, threshold)
	if err != nil {
		return err
	}
	defer closePipeline()

	result, err := batch.ProcessBatch(ctx, p, args, bc)
	if err != nil {
		return err
	}

	out, err := result.FormatResults(format, p.Config().Catalog, threshold)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), outputFile, out); err != nil {
		return err
	}
	if !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	if failed := len(result.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(result.Items))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "glob patterns of files to include")
	batchCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to exclude")
	batchCmd.Flags().String("pages", "", "pages to process in every document, 1-based")
	batchCmd.Flags().StringP("format", "f", "json", "output format: json, text, csv")
	batchCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	batchCmd.Flags().String("overlay-dir", "", "write overlay PNGs to this directory")
	batchCmd.Flags().Int("render-width", 1000, "overlay image width in pixels")
	batchCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
	batchCmd.Flags().String("from-result", "", "replay a saved extraction result for every document")
}
