// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package convert

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/ooxml"
)

// DocxToXML returns the main document part of a .docx unchanged.
func DocxToXML(data []byte) ([]byte, error) {
	doc, err := ooxml.Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return doc.XML(), nil
}

// XMLToDocx wraps a w:document XML into a complete .docx package.
func XMLToDocx(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperr.Invalid("Empty file uploaded")
	}
	if !utf8.Valid(data) {
		return nil, apperr.Invalid("Invalid XML file encoding")
	}

	var buf bytes.Buffer
	if err := ooxml.NewPackage(data, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SwapExtension replaces the extension of filename's base name with ext,
// e.g. ("dir/report.docx", ".xml") -> "report.xml".
func SwapExtension(filename, ext string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		base = "document"
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ext
}
