package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/registry"
	"github.com/MeKo-Tech/kyclens/internal/version"
)

const (
	defaultExtractorMode = "custom"
	multipartMemory      = 32 << 20
)

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   version.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) infoHandler(w http.ResponseWriter, _ *http.Request) {
	pc := s.processor.Config()
	writeJSON(w, http.StatusOK, InfoResponse{
		APIName:     "kyclens",
		Version:     version.Version,
		Description: pc.Catalog.Description,
		ProcessorInfo: ProcessorInfo{
			Name:                pc.Catalog.Name,
			Extractor:           s.processor.ExtractorName(),
			ConfidenceThreshold: pc.ConfidenceThreshold,
			MaxUploadBytes:      s.cfg.MaxUploadMB << 20,
			MaxPages:            pc.Limits.MaxPages,
			SupportedFormats:    document.SupportedExtensions(),
		},
		SupportedFields: pc.Catalog.SupportedFields(),
	})
}

func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.MaxUploadMB << 20
	// Leave room for multipart framing so oversize files reach validation.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusRequestEntityTooLarge, CodeValidation, "file too large", map[string]any{
				"invalid_fields": []string{"file"},
			})
			return
		}
		writeError(w, r, http.StatusBadRequest, CodeValidation, "failed to parse form data", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "no file provided", map[string]any{
			"invalid_fields": []string{"file"},
		})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "failed to read file", nil)
		return
	}

	mode := strings.TrimSpace(r.FormValue("extractor_mode"))
	if mode == "" {
		mode = defaultExtractorMode
	}
	if mode != defaultExtractorMode {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "unsupported extractor mode", map[string]any{
			"validation_errors": []string{fmt.Sprintf("extractor_mode %q is not supported", mode)},
			"invalid_fields":    []string{"extractor_mode"},
		})
		return
	}

	pages, err := document.ParsePageRange(r.FormValue("pages"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid page selection", map[string]any{
			"validation_errors": []string{err.Error()},
			"invalid_fields":    []string{"pages"},
		})
		return
	}

	threshold := s.processor.Config().ConfidenceThreshold
	if v := r.FormValue("confidence_threshold_override"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid confidence threshold", map[string]any{
				"invalid_fields": []string{"confidence_threshold_override"},
			})
			return
		}
		threshold = t
	}

	uploadSizeBytes.Observe(float64(len(data)))
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.TimeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	doc, err := s.processor.Process(ctx, document.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, pages)
	extractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var verr *document.ValidationError
		if errors.As(err, &verr) {
			documentsProcessed.WithLabelValues("invalid").Inc()
		} else {
			documentsProcessed.WithLabelValues("failed").Inc()
			slog.Error("document processing failed", "file", header.Filename, "error", err)
		}
		writeProcessError(w, r, err)
		return
	}

	documentsProcessed.WithLabelValues("success").Inc()
	fieldsExtracted.WithLabelValues("found").Add(float64(doc.Summary.FieldsFound))
	fieldsExtracted.WithLabelValues("missing").Add(float64(doc.Summary.FieldsMissing))
	if doc.Cached {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}

	stored := &storedDocument{doc: doc, mode: mode, threshold: threshold, processedAt: time.Now().UTC()}
	s.docs.Put(doc.ID, stored)
	writeJSON(w, http.StatusOK, s.processResponse(stored))
}

func (s *Server) processResponse(sd *storedDocument) ProcessResponse {
	catalog := s.processor.Config().Catalog
	return ProcessResponse{
		RequestID:            sd.doc.ID,
		Filename:             sd.doc.Filename,
		ProcessingMode:       sd.mode,
		Cached:               sd.doc.Cached,
		PageCount:            sd.doc.PageCount(),
		ExtractedInformation: sd.doc.Information(catalog, sd.threshold),
		Entities:             sd.doc.Entities,
		Summary:              sd.doc.Summary,
		Timestamp:            sd.processedAt.Format(time.RFC3339),
	}
}

func (s *Server) documentHandler(w http.ResponseWriter, r *http.Request) {
	sd, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.processResponse(sd))
}

func (s *Server) entitiesHandler(w http.ResponseWriter, r *http.Request) {
	sd, page, ok := s.lookupPage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, EntitiesResponse{
		DocumentID: sd.doc.ID,
		Page:       page,
		Entities:   sd.doc.PageEntities(page),
	})
}

func (s *Server) overlayHandler(w http.ResponseWriter, r *http.Request) {
	sd, page, ok := s.lookupPage(w, r)
	if !ok {
		return
	}
	width, errW := queryFloat(r, "width")
	height, errH := queryFloat(r, "height")
	if err := errors.Join(errW, errH); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid rendered size", map[string]any{
			"validation_errors": []string{err.Error()},
			"invalid_fields":    []string{"width", "height"},
		})
		return
	}
	size := overlay.RenderedSize{Width: width, Height: height}
	rects := sd.doc.Overlay(page, size)
	if rects == nil {
		rects = []overlay.ScreenRect{}
	}
	overlayRects.Observe(float64(len(rects)))
	writeJSON(w, http.StatusOK, OverlayResponse{DocumentID: sd.doc.ID, Page: page, Rendered: size, Rects: rects})
}

func (s *Server) overlayImageHandler(w http.ResponseWriter, r *http.Request) {
	sd, page, ok := s.lookupPage(w, r)
	if !ok {
		return
	}
	width := s.cfg.RenderWidth
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid width", map[string]any{
				"invalid_fields": []string{"width"},
			})
			return
		}
		width = n
	}
	if _, ok := sd.doc.PageImage(page); !ok {
		writeError(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("no image available for page %d", page), nil)
		return
	}
	img, err := sd.doc.RenderPage(page, width, s.cfg.Style)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeProcessing, "failed to render overlay", map[string]any{
			"error_message": err.Error(),
		})
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeInternal, "failed to encode overlay", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	sd, ok := s.lookup(w, r)
	if !ok {
		return
	}
	pages, err := sd.doc.ExportPages()
	if err == nil && len(pages) == 0 {
		err = errors.New("document has no pages")
	}
	var data []byte
	if err == nil {
		data, err = overlay.ExportPDF(pages, s.cfg.Style)
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeProcessing, "failed to export document", map[string]any{
			"error_message": err.Error(),
		})
		return
	}
	name := strings.TrimSuffix(filepath.Base(sd.doc.Filename), filepath.Ext(sd.doc.Filename))
	if name == "" || name == "." {
		name = sd.doc.ID
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"_overlay.pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*storedDocument, bool) {
	id := chi.URLParam(r, "id")
	sd, err := s.docs.Get(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, CodeNotFound, "document not found", map[string]any{"document_id": id})
		} else {
			writeProcessError(w, r, err)
		}
		return nil, false
	}
	return sd, true
}

// lookupPage resolves the document and the 0-based {page} parameter.
func (s *Server) lookupPage(w http.ResponseWriter, r *http.Request) (*storedDocument, int, bool) {
	sd, ok := s.lookup(w, r)
	if !ok {
		return nil, 0, false
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 0 {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid page", map[string]any{
			"invalid_fields": []string{"page"},
		})
		return nil, 0, false
	}
	if page >= sd.doc.PageCount() {
		writeError(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("page %d not found", page), map[string]any{
			"page_count": sd.doc.PageCount(),
		})
		return nil, 0, false
	}
	return sd, page, true
}

// queryFloat reads an optional query parameter; absent means 0.
func queryFloat(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}
