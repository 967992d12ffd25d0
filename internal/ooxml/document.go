// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package ooxml reads and writes WordprocessingML packages (.docx).
//
// Package-level access (zip parts, content replacement, serialisation) is
// delegated to github.com/nguyenthenguyen/docx; this package adds the checks
// and the paragraph/run view the services need on top of it.
package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/nguyenthenguyen/docx"

	"github.com/docxpress/internal/apperr"
)

// Namespaces used in word/document.xml.
const (
	NamespaceW  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NamespaceR  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NamespaceMC = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// MainPart is the zip entry holding the document body.
const MainPart = "word/document.xml"

// Content types served for the formats handled here.
const (
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXML  = "application/xml"
)

// Document is an opened .docx package. It must be closed by the caller.
type Document struct {
	replace *docx.ReplaceDocx
}

// Open parses a .docx held in memory.
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, apperr.Invalid("Empty file uploaded")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Malformed("Invalid DOCX file format")
	}
	if !hasPart(zr, MainPart) {
		return nil, apperr.Malformed("Invalid DOCX structure - missing document.xml")
	}

	rd, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Malformed(fmt.Sprintf("Invalid DOCX structure - %v", err))
	}

	return &Document{replace: rd}, nil
}

func hasPart(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// XML returns word/document.xml exactly as stored in the package.
func (d *Document) XML() []byte {
	return []byte(d.replace.Editable().GetContent())
}

// Editable returns a mutable copy of the package for placeholder replacement.
func (d *Document) Editable() *docx.Docx {
	return d.replace.Editable()
}

// Close releases the underlying package reader.
func (d *Document) Close() error {
	if d == nil || d.replace == nil {
		return nil
	}
	return d.replace.Close()
}
