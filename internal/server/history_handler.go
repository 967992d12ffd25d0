package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/database"
	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/server/middleware"
)

// HistoryRecorder appends processed requests to the activity history.
type HistoryRecorder interface {
	Record(ctx context.Context, e database.Entry) error
}

// HistoryReader lists recent activity.
type HistoryReader interface {
	Recent(ctx context.Context, limit int, operation string) ([]database.Entry, error)
}

// recordActivity writes one history entry for a finished request. A nil
// recorder disables history; failures are only logged.
func recordActivity(rec HistoryRecorder, r *http.Request, op, filename string, bytesIn int64, start time.Time, err error) {
	if rec == nil {
		return
	}
	e := database.Entry{
		RequestID:  middleware.RequestID(r.Context()),
		Operation:  op,
		Filename:   filename,
		Status:     apperr.StatusCode(err),
		BytesIn:    bytesIn,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		e.Detail = apperr.Detail(err)
	}
	// The request context may already be cancelled once the response is out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()
	if err := rec.Record(ctx, e); err != nil {
		logger.Warnf("failed to record %s activity: %v", op, err)
	}
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Count   int              `json:"count"`
	Entries []database.Entry `json:"entries"`
}

// HistoryHandler serves GET /history?limit=&operation=.
type HistoryHandler struct {
	history HistoryReader
}

// NewHistoryHandler creates a history handler. history may be nil, in which
// case the endpoint reports that history is disabled.
func NewHistoryHandler(history HistoryReader) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// HandleHistory handles GET /history requests
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h.history == nil {
		writeError(w, r, apperr.NotFound("History is disabled"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, apperr.Invalid("limit must be an integer"))
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), limit, r.URL.Query().Get("operation"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Count: len(entries), Entries: entries})
}
