// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/logger"
)

var errLogStreamClosed = fmt.Errorf("%w: log stream unavailable, logger is closed", apperr.ErrInternal)

// HandleLogStream streams logs via Server-Sent Events (SSE)
func HandleLogStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: streaming not supported", apperr.ErrInternal))
		return
	}

	log := logger.GetDefault()
	clientChan, unsubscribeChan := log.Subscribe()
	if clientChan == nil {
		writeError(w, r, errLogStreamClosed)
		return
	}
	defer log.Unsubscribe(unsubscribeChan)

	// the stream outlives the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debugf("Log stream keeps the server write deadline: %v", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	fmt.Fprintf(w, "data: Connected to log stream\n\n")
	flusher.Flush()

	for {
		select {
		case logLine, ok := <-clientChan:
			if !ok {
				fmt.Fprintf(w, "data: Log stream closed\n\n")
				flusher.Flush()
				return
			}
			// SSE data cannot span lines
			logLine = strings.ReplaceAll(logLine, "\n", "\ndata: ")
			if _, err := fmt.Fprintf(w, "data: %s\n\n", logLine); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
