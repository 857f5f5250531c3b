package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// ErrorCode writes a JSON error response tagged with a machine-readable class.
func ErrorCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// InternalError logs err and writes a 500 with a generic message, so
// connection strings and hostnames stay out of responses.
func InternalError(w http.ResponseWriter, code string, err error) {
	logger.Error("httputil: internal error", "code", code, "error", err)
	ErrorCode(w, http.StatusInternalServerError, code, "internal server error")
}
