package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/MeKo-Tech/kyclens/internal/document"
	"github.com/MeKo-Tech/kyclens/internal/pipeline"
	"github.com/MeKo-Tech/kyclens/internal/registry"
)

// Error codes used in the error envelope.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeProcessing    = "PROCESSING_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeRateLimited   = "RATE_LIMITED"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope of every error reply.
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error:     ErrorDetail{Code: code, Message: message, Details: details},
		RequestID: chiMiddleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeProcessError maps a pipeline failure to the envelope.
func writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *document.ValidationError
	var perr *pipeline.ProcessingError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if errors.Is(err, document.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, r, status, CodeValidation, "request validation failed", map[string]any{
			"validation_errors": []string{verr.Reason},
			"invalid_fields":    []string{verr.Field},
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, CodeProcessing, "document processing timed out", map[string]any{
			"error_type": "timeout",
		})
	case errors.As(err, &perr):
		writeError(w, r, http.StatusInternalServerError, CodeProcessing, "failed to process document", map[string]any{
			"stage":         string(perr.Stage),
			"error_message": perr.Err.Error(),
		})
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	default:
		writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal error", map[string]any{
			"error_message": err.Error(),
		})
	}
}
