package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
)

// overlayCmd projects a saved result onto a rendered page size.
var overlayCmd = &cobra.Command{
	Use:   "overlay <result.json>",
	Short: "Project a saved extraction result onto a rendered page",
	Long: `Compute the on-screen highlight rectangles for one page of a saved extraction
result, as a viewer showing that page at --width x --height pixels would draw them.

Absolute boxes are rescaled with the page dimension stored in the result; pass
--page-width and --page-height to supply or override it.

Examples:
  kyclens overlay result.json --page 0 --width 800 --height 1100
  kyclens overlay result.json --page 1 --width 612 --height 792 --page-width 2550 --page-height 3300`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runOverlayCommand,
}

func runOverlayCommand(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	page, _ := f.GetInt("page")
	width, _ := f.GetFloat64("width")
	height, _ := f.GetFloat64("height")
	pageWidth, _ := f.GetFloat64("page-width")
	pageHeight, _ := f.GetFloat64("page-height")

	if page < 0 {
		return fmt.Errorf("invalid page: %d", page)
	}
	if width <= 0 || height <= 0 {
		return errors.New("--width and --height must be positive")
	}

	result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	if pageWidth > 0 || pageHeight > 0 {
		dim := &extraction.PageDimension{Width: pageWidth, Height: pageHeight}
		if !dim.Known() {
			return errors.New("--page-width and --page-height must both be positive")
		}
		setDimension(result, page, dim)
	}

	var dim *extraction.PageDimension
	if p, ok := result.Page(page); ok {
		dim = p.Dimension
	}
	entities := normalize.Document(result)[page]
	rects := overlay.Project(entities, page, overlay.RenderedSize{Width: width, Height: height}, dim)
	if rects == nil {
		rects = []overlay.ScreenRect{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rects)
}

// setDimension sets the natural size of page, adding an empty page when the
// result has no entry for it.
func setDimension(result *extraction.DocumentResult, page int, dim *extraction.PageDimension) {
	if p, ok := result.Page(page); ok {
		p.Dimension = dim
		return
	}
	result.Pages = append(result.Pages, extraction.PageResult{Index: page, Dimension: dim})
}

func init() {
	rootCmd.AddCommand(overlayCmd)
	overlayCmd.Flags().Int("page", 0, "0-based page index")
	overlayCmd.Flags().Float64("width", 0, "rendered page width in pixels")
	overlayCmd.Flags().Float64("height", 0, "rendered page height in pixels")
	overlayCmd.Flags().Float64("page-width", 0, "natural page width for absolute boxes")
	overlayCmd.Flags().Float64("page-height", 0, "natural page height for absolute boxes")
}
