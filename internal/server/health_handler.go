// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleHealth returns a handler for GET /health
func HandleHealth(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: service + " is running"})
	}
}

// HandleInfo returns a handler for GET / listing the service endpoints. Any
// other unmatched path is a 404.
func HandleInfo(service string, endpoints map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, InfoResponse{Message: service, Version: Version, Endpoints: endpoints})
	}
}
