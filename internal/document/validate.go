// Package document validates uploaded forms and reads page geometry and page
// images out of them.
package document

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// Limits for uploads.
const (
	DefaultMaxBytes = 20 << 20
	DefaultMaxPages = 10
)

var (
	// ErrEmptyFile is returned for zero-length uploads.
	ErrEmptyFile = errors.New("file is empty")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrUnsupportedType is returned for files that are not PDFs or supported images.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidPages is returned for bad page selections.
	ErrInvalidPages = errors.New("invalid page selection")
)

// ValidationError names the input that failed and wraps the sentinel.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// supportedTypes is the MIME allow-list.
var supportedTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/tiff",
	"image/tif",
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// SupportedExtensions lists file extensions accepted for processing.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// IsSupportedFile reports whether path has a supported extension.
func IsSupportedFile(path string) bool {
	_, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Upload is a file received for processing.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Limits bounds what Validate accepts.
type Limits struct {
	MaxBytes int64
	MaxPages int
}

// DefaultLimits returns the service defaults.
func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, MaxPages: DefaultMaxPages}
}

// Validate checks an upload and returns the MIME type it will be sent with.
// The declared content type wins when it is supported; otherwise the file
// extension decides, and finally the content is sniffed.
func Validate(u Upload, limits Limits) (string, error) {
	if len(u.Data) == 0 {
		return "", &ValidationError{Field: "file", Reason: "file is empty", Err: ErrEmptyFile}
	}
	if limits.MaxBytes > 0 && int64(len(u.Data)) > limits.MaxBytes {
		return "", &ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("file size %d exceeds limit of %d bytes", len(u.Data), limits.MaxBytes),
			Err:    ErrTooLarge,
		}
	}
	mimeType := DetectMIMEType(u)
	if mimeType == "" {
		return "", &ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("file type not supported: %q", u.Filename),
			Err:    ErrUnsupportedType,
		}
	}
	return mimeType, nil
}

// DetectMIMEType returns the canonical MIME type of u, or "" when unsupported.
func DetectMIMEType(u Upload) string {
	if mt, _, err := mime.ParseMediaType(u.ContentType); err == nil && slices.Contains(supportedTypes, mt) {
		return canonicalType(mt)
	}
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(u.Filename))]; ok {
		return mt
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(u.Data))
	if slices.Contains(supportedTypes, sniffed) {
		return canonicalType(sniffed)
	}
	return ""
}

func canonicalType(mt string) string {
	switch mt {
	case "image/jpg":
		return "image/jpeg"
	case "image/tif":
		return "image/tiff"
	}
	return mt
}

// ValidatePages dedupes and sorts a 0-based page selection.
func ValidatePages(pages []int, maxPages int) ([]int, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	out := slices.Clone(pages)
	slices.Sort(out)
	out = slices.Compact(out)
	if out[0] < 0 {
		return nil, &ValidationError{Field: "pages", Reason: "page numbers must be non-negative", Err: ErrInvalidPages}
	}
	if maxPages > 0 && len(out) > maxPages {
		return nil, &ValidationError{
			Field:  "pages",
			Reason: fmt.Sprintf("too many pages selected (%d > %d)", len(out), maxPages),
			Err:    ErrInvalidPages,
		}
	}
	return out, nil
}
