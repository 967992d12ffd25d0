// Package ooxmltest builds small WordprocessingML fixtures for tests.
package ooxmltest

import (
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/docxpress/internal/ooxml"
)

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// Run returns a plain w:r.
func Run(text string) string {
	return fmt.Sprintf(`<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, escape(text))
}

// WordRun returns a w:r the way Word writes it, without xml:space on w:t.
func WordRun(text string) string {
	return fmt.Sprintf(`<w:r><w:t>%s</w:t></w:r>`, escape(text))
}

// HighlightedRun returns a w:r whose properties carry w:highlight w:val=color.
func HighlightedRun(text, color string) string {
	return fmt.Sprintf(`<w:r><w:rPr><w:b/><w:highlight w:val="%s"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`, color, escape(text))
}

// Paragraph wraps runs in a w:p.
func Paragraph(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

// Document wraps body content in a w:document.
func Document(body ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + ooxml.NamespaceW + `" xmlns:r="` + ooxml.NamespaceR + `" xmlns:mc="` + ooxml.NamespaceMC + `">` +
		"<w:body>" + strings.Join(body, "") + "</w:body></w:document>"
}

// Package zips documentXML into a complete .docx.
func Package(t testing.TB, documentXML string) []byte {
	t.Helper()
	return PackageWithParts(t, documentXML, nil)
}

// PackageWithParts is Package plus extra parts such as word/header1.xml.
func PackageWithParts(t testing.TB, documentXML string, extra map[string]string) []byte {
	t.Helper()
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		ooxml.MainPart: documentXML,
	}
	for name, body := range extra {
		parts[name] = body
	}

	data, err := ooxml.BuildPackage(parts)
	if err != nil {
		t.Fatalf("BuildPackage failed: %v", err)
	}
	return data
}
