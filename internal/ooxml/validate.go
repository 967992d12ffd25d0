package ooxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/docxpress/internal/apperr"
)

// ValidateDocumentXML checks that data is well-formed XML whose root is
// w:document with a w:body child, i.e. something Word can open as a main part.
func ValidateDocumentXML(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return apperr.Invalid("Empty file uploaded")
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	sawRoot := false
	sawBody := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return apperr.Malformed(fmt.Sprintf("Invalid XML format: %v", err))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return apperr.Malformed("Invalid XML format: multiple root elements")
				}
				if t.Name.Space != NamespaceW || t.Name.Local != "document" {
					return apperr.Malformed(fmt.Sprintf("Invalid document XML: root element must be w:document, got %s", displayName(t.Name)))
				}
				sawRoot = true
			}
			if depth == 1 && t.Name.Space == NamespaceW && t.Name.Local == "body" {
				sawBody = true
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return apperr.Malformed("Invalid XML format: no root element")
	}
	if !sawBody {
		return apperr.Malformed("Invalid document XML: missing w:body")
	}
	return nil
}

func displayName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return fmt.Sprintf("{%s}%s", n.Space, n.Local)
}
