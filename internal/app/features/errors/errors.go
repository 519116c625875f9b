// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"go.uber.org/zap"
)

// MsgServerError is the only message a client sees for storage or other
// unexpected failures.
const MsgServerError = "Something went wrong. Please try again."

// MsgBadRequest is returned when a request body cannot be decoded.
const MsgBadRequest = "Invalid request body."

// Handler is the errors feature handler.
// No DB needed; it answers router-level misses.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is installed as the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, http.StatusNotFound, "Page not found.")
}

// MethodNotAllowed is installed as the router's MethodNotAllowed handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed.")
}

// ErrorLogger logs unexpected failures once, with request context, and
// answers with a generic 500.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger wraps logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// HandleServerError logs err at Error level and writes MsgServerError.
// msg describes the failed operation for the log line.
func (e *ErrorLogger) HandleServerError(w http.ResponseWriter, r *http.Request, err error, msg string, fields ...zap.Field) {
	fields = append(fields,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	e.log.Error(msg, fields...)
	respond.Error(w, http.StatusInternalServerError, MsgServerError)
}
