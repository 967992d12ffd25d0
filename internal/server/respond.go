package server

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/server/middleware"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("failed to encode response: %v", err)
	}
}

// writeError answers with the status and detail for err. Server-side
// failures are logged with their cause and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s (%s): %v", r.Method, r.URL.Path, middleware.RequestID(r.Context()), err)
	}
	writeJSON(w, status, ErrorResponse{Detail: apperr.Detail(err)})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method not allowed"})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warnf("failed to write %s: %v", filename, err)
	}
}
