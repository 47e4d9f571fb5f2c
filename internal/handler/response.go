package handler

// Every error response has the same shape:
//
//	{"error": "validation_error", "message": "username and password are required"}
//
// so the front end always knows which fields to expect.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/captionly/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable error type
	Message string `json:"message"` // human-readable description
}

// MessageResponse is returned by endpoints that have nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON. Headers and status must be set before the
// body is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrConflict,
//	ErrInvalidCredentials, ErrNotFound → 400
//	ErrUnauthorized                    → 401
//	ErrUpstream                        → 500 with the AppError message
//	anything else                      → 500 with a generic message
//
// The causes of 5xx responses are logged to logger (slog.Default when nil) and
// never sent to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusBadRequest, "conflict"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		status, errorType = http.StatusBadRequest, "invalid_credentials"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusBadRequest, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrUpstream):
		errorType = "upstream_error"
	}

	if status >= http.StatusInternalServerError {
		attrs := []any{slog.String("error", err.Error())}
		if appErr.Cause != nil {
			attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
		}
		logger.Error("request failed", attrs...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}

// decodeJSON reads a JSON request body of at most maxBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}
