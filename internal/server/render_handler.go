// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/docxpress/internal/database"
	"github.com/docxpress/internal/ooxml"
	"github.com/docxpress/internal/render"
)

// UnresolvedHeader lists placeholders left in a rendered document.
const UnresolvedHeader = "X-Unresolved-Placeholders"

// TemplateLister lists available templates.
type TemplateLister interface {
	List(ctx context.Context) ([]string, error)
}

// RenderHandler holds dependencies for the template endpoints
type RenderHandler struct {
	renderer        *render.Renderer
	templates       TemplateLister
	history         HistoryRecorder
	maxBytes        int64
	defaultTemplate string
}

// NewRenderHandler creates a new render handler. history may be nil.
func NewRenderHandler(renderer *render.Renderer, templates TemplateLister, history HistoryRecorder, maxBytes int64, defaultTemplate string) *RenderHandler {
	return &RenderHandler{
		renderer:        renderer,
		templates:       templates,
		history:         history,
		maxBytes:        maxBytes,
		defaultTemplate: defaultTemplate,
	}
}

// HandleGenerate handles POST /generate-docx/ requests
func (h *RenderHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	start := time.Now()

	body, err := readBody(w, r, h.maxBytes)
	if err != nil {
		recordActivity(h.history, r, database.OpRender, "", 0, start, err)
		writeError(w, r, err)
		return
	}
	req, err := render.ParseRequest(bytes.NewReader(body))
	if err != nil {
		recordActivity(h.history, r, database.OpRender, "", int64(len(body)), start, err)
		writeError(w, r, err)
		return
	}

	out, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		name := req.Template
		if name == "" {
			name = h.defaultTemplate
		}
		recordActivity(h.history, r, database.OpRender, name, int64(len(body)), start, err)
		writeError(w, r, err)
		return
	}

	recordActivity(h.history, r, database.OpRender, out.Template, int64(len(body)), start, nil)
	for _, name := range out.Unresolved {
		w.Header().Add(UnresolvedHeader, name)
	}
	writeAttachment(w, ooxml.ContentTypeDocx, out.Filename, out.Data)
}

// TemplatesResponse is the body of GET /templates.
type TemplatesResponse struct {
	Default   string   `json:"default"`
	Templates []string `json:"templates"`
}

// HandleTemplates handles GET /templates requests
func (h *RenderHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	names, err := h.templates.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TemplatesResponse{Default: h.defaultTemplate, Templates: names})
}
