// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/convert"
	"github.com/docxpress/internal/database"
	"github.com/docxpress/internal/export"
	"github.com/docxpress/internal/highlight"
	"github.com/docxpress/internal/ooxml"
)

// DocxHandler holds dependencies for the extraction and conversion endpoints
type DocxHandler struct {
	highlights *highlight.Service
	history    HistoryRecorder
	maxBytes   int64
}

// NewDocxHandler creates a new docx handler. history may be nil.
func NewDocxHandler(highlights *highlight.Service, history HistoryRecorder, maxBytes int64) *DocxHandler {
	return &DocxHandler{highlights: highlights, history: history, maxBytes: maxBytes}
}

// HandleSubmit handles POST /submit-docx requests. ?format=xlsx returns the
// result as a workbook instead of JSON.
func (h *DocxHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	start := time.Now()

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "xlsx" {
		err := apperr.Invalid(fmt.Sprintf("Unsupported format %q, expected json or xlsx", format))
		recordActivity(h.history, r, database.OpExtract, "", 0, start, err)
		writeError(w, r, err)
		return
	}

	up, err := readUpload(w, r, h.maxBytes, ".docx", "File must be a DOCX document")
	if err != nil {
		recordActivity(h.history, r, database.OpExtract, "", 0, start, err)
		writeError(w, r, err)
		return
	}

	res, err := h.highlights.Process(r.Context(), up.Filename, up.Data)
	if err != nil {
		recordActivity(h.history, r, database.OpExtract, up.Filename, int64(len(up.Data)), start, err)
		writeError(w, r, err)
		return
	}

	if format == "xlsx" {
		book, err := export.HighlightsWorkbook(res)
		recordActivity(h.history, r, database.OpExtract, up.Filename, int64(len(up.Data)), start, err)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeAttachment(w, export.ContentTypeXLSX, convert.SwapExtension(up.Filename, "_highlights.xlsx"), book)
		return
	}

	recordActivity(h.history, r, database.OpExtract, up.Filename, int64(len(up.Data)), start, nil)
	writeJSON(w, http.StatusOK, res)
}

// HandleConvertXML handles POST /convert-xml (docx in, document XML out)
func (h *DocxHandler) HandleConvertXML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	start := time.Now()

	up, err := readUpload(w, r, h.maxBytes, ".docx", "File must be a DOCX document")
	if err != nil {
		recordActivity(h.history, r, database.OpConvertXML, "", 0, start, err)
		writeError(w, r, err)
		return
	}

	xml, err := convert.DocxToXML(up.Data)
	recordActivity(h.history, r, database.OpConvertXML, up.Filename, int64(len(up.Data)), start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, ooxml.ContentTypeXML, convert.SwapExtension(up.Filename, ".xml"), xml)
}

// HandleConvertDocx handles POST /convert-docx (document XML in, docx out)
func (h *DocxHandler) HandleConvertDocx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	start := time.Now()

	up, err := readUpload(w, r, h.maxBytes, ".xml", "File must be an XML document")
	if err != nil {
		recordActivity(h.history, r, database.OpConvertDocx, "", 0, start, err)
		writeError(w, r, err)
		return
	}

	doc, err := convert.XMLToDocx(up.Data)
	recordActivity(h.history, r, database.OpConvertDocx, up.Filename, int64(len(up.Data)), start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, ooxml.ContentTypeDocx, convert.SwapExtension(up.Filename, ".docx"), doc)
}

// HandleJSONToXML handles POST /json-to-xml-file. The body is JSON; the
// answer is output.xml. ?root= names the root element.
func (h *DocxHandler) HandleJSONToXML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	start := time.Now()

	body, err := readBody(w, r, h.maxBytes)
	if err != nil {
		recordActivity(h.history, r, database.OpJSONToXML, "", 0, start, err)
		writeError(w, r, err)
		return
	}

	xml, err := convert.JSONToXML(bytes.NewReader(body), r.URL.Query().Get("root"))
	recordActivity(h.history, r, database.OpJSONToXML, "output.xml", int64(len(body)), start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, ooxml.ContentTypeXML, "output.xml", xml)
}
