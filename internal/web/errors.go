package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request ID, and
// returned to the client as a user-facing message from core.MapError with
// a support code and a suggested action.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/core"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrImportNotFound),
		errors.Is(err, core.ErrTemplateNotFound),
		errors.Is(err, core.ErrCatalogNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTemplateExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidMapping),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrUnsupportedFileType),
		errors.Is(err, core.ErrValidationFailed),
		errors.Is(err, core.ErrCategoryNotFound):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing JSON form with the
// status picked by statusFor.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorStatus(w, r, err, statusFor(err))
}

// respondErrorStatus is respondError with an explicit status code.
func respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

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

	// Server-side failures keep their detail in the log only
	detail := err.Error()
	if statusCode >= http.StatusInternalServerError {
		detail = userMsg.Message
	}

	writeJSONStatus(w, statusCode, ErrorResponse{
		Error:   detail,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// respondMessage reports a request problem detected by the handler itself.
func respondMessage(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	respondErrorStatus(w, r, errors.New(message), statusCode)
}
