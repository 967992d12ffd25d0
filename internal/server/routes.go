// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/docxpress/internal/server/middleware"
)

// Service names used in health and info responses.
const (
	DocxServiceName     = "DOCX Processing API"
	TemplateServiceName = "DOCX Template API"
)

// DocxDeps wires the docx processing service.
type DocxDeps struct {
	Docx    *DocxHandler
	History HistoryReader
}

// NewDocxMux builds the docx processing routes wrapped in the middleware chain.
func NewDocxMux(deps DocxDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/submit-docx", deps.Docx.HandleSubmit)
	mux.HandleFunc("/convert-xml", deps.Docx.HandleConvertXML)
	mux.HandleFunc("/convert-docx", deps.Docx.HandleConvertDocx)
	mux.HandleFunc("/json-to-xml-file", deps.Docx.HandleJSONToXML)
	mux.HandleFunc("/history", NewHistoryHandler(deps.History).HandleHistory)
	mux.HandleFunc("/health", HandleHealth(DocxServiceName))
	mux.HandleFunc("/logs/stream", HandleLogStream)
	mux.HandleFunc("/ws/logs", HandleLogSocket)
	mux.HandleFunc("/", HandleInfo(DocxServiceName, map[string]string{
		"/submit-docx":      "Extract highlighted text from DOCX file (?format=xlsx for a workbook)",
		"/convert-xml":      "Convert DOCX to XML",
		"/convert-docx":     "Convert XML to DOCX",
		"/json-to-xml-file": "Convert a JSON body to XML",
		"/history":          "Recent processing activity",
	}))

	return wrap(mux)
}

// RenderDeps wires the template service.
type RenderDeps struct {
	Render  *RenderHandler
	History HistoryReader
}

// NewRenderMux builds the template service routes wrapped in the middleware chain.
func NewRenderMux(deps RenderDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/generate-docx/", deps.Render.HandleGenerate)
	mux.HandleFunc("/generate-docx", deps.Render.HandleGenerate)
	mux.HandleFunc("/templates", deps.Render.HandleTemplates)
	mux.HandleFunc("/history", NewHistoryHandler(deps.History).HandleHistory)
	mux.HandleFunc("/health", HandleHealth(TemplateServiceName))
	mux.HandleFunc("/logs/stream", HandleLogStream)
	mux.HandleFunc("/ws/logs", HandleLogSocket)
	mux.HandleFunc("/", HandleInfo(TemplateServiceName, map[string]string{
		"/generate-docx/": "Render a DOCX template from JSON data",
		"/templates":      "List available templates",
		"/history":        "Recent rendering activity",
	}))

	return wrap(mux)
}

func wrap(h http.Handler) http.Handler {
	return middleware.TrafficLogger(middleware.Recover(h))
}
