package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged server-side with its technical detail and request
// ID, then returned to the client as JSON built from catalog.MapError so the
// user sees a message, a suggested action and a support code.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/catalogflat/internal/artifact"
	"github.com/JonMunkholm/catalogflat/internal/catalog"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the user-facing JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := catalog.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor picks the HTTP status for an error returned by the pipeline.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, catalog.ErrDocumentTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, catalog.ErrTooManyRuns), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, catalog.ErrMalformedDocument),
		errors.Is(err, catalog.ErrUnsupportedFormat),
		errors.Is(err, artifact.ErrInvalidName),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
