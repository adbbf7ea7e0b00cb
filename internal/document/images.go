package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageImages returns one raster per 0-based page. PDFs yield the largest
// embedded image of each page, which for scanned forms is the page scan.
// Image uploads yield a single page 0.
func PageImages(data []byte, mimeType string, pages []int) (map[int]image.Image, error) {
	if mimeType != "application/pdf" {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return map[int]image.Image{0: img}, nil
	}
	return extractPDFImages(data, pages)
}

// EncodePNG encodes img for transport or storage.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func extractPDFImages(data []byte, pages []int) (map[int]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "kyclens-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	// pdfcpu names output files after the input base name.
	inFile := filepath.Join(tempDir, "page.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage pdf: %w", err)
	}
	outDir := filepath.Join(tempDir, "out")
	if err := os.Mkdir(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p+1))
	}
	if err := api.ExtractImagesFile(inFile, outDir, selected, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(outDir)
}

// collectExtractedImages keeps the largest image found for each page.
func collectExtractedImages(dir string) (map[int]image.Image, error) {
	result := make(map[int]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		img, err := loadImageFile(path)
		if err != nil {
			return nil
		}
		idx := pageNum - 1
		if cur, ok := result[idx]; !ok || area(img) > area(cur) {
			result[idx] = img
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from our own temp directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// parsePageFromFilename reads the 1-based page from names like page_2_Im0.png.
func parsePageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 3 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(parts[1])
	if err != nil || pageNum < 1 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}
