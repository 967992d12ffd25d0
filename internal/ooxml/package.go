package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/nguyenthenguyen/docx"

	"github.com/docxpress/internal/apperr"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
    <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
    <Default Extension="xml" ContentType="application/xml"/>
    <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
    <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
    <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
    <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
    <w:docDefaults>
        <w:rPrDefault>
            <w:rPr>
                <w:rFonts w:ascii="Calibri" w:eastAsia="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/>
                <w:sz w:val="22"/>
                <w:szCs w:val="22"/>
                <w:lang w:val="en-US" w:eastAsia="en-US" w:bidi="ar-SA"/>
            </w:rPr>
        </w:rPrDefault>
    </w:docDefaults>
</w:styles>`

// EmptyDocumentXML is a main part with an empty body.
const EmptyDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body/></w:document>`

// skeleton is the minimal package every generated .docx starts from.
var skeleton = sync.OnceValues(func() ([]byte, error) {
	return BuildPackage(map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"_rels/.rels":                  packageRelsXML,
		"word/_rels/document.xml.rels": documentRelsXML,
		"word/styles.xml":              stylesXML,
		MainPart:                       EmptyDocumentXML,
	})
})

// partOrder keeps [Content_Types].xml first, as Word expects.
var partOrder = []string{
	"[Content_Types].xml",
	"_rels/.rels",
	"word/_rels/document.xml.rels",
	"word/styles.xml",
	MainPart,
}

// BuildPackage zips the given parts. Known parts are written in the
// conventional order; any others follow in unspecified order.
func BuildPackage(parts map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	written := make(map[string]bool, len(parts))
	write := func(name, body string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, body)
		written[name] = true
		return err
	}

	for _, name := range partOrder {
		if body, ok := parts[name]; ok {
			if err := write(name, body); err != nil {
				return nil, fmt.Errorf("failed to write part %s: %w", name, err)
			}
		}
	}
	for name, body := range parts {
		if written[name] {
			continue
		}
		if err := write(name, body); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish package: %w", err)
	}
	return buf.Bytes(), nil
}

// NewPackage validates documentXML and writes a complete .docx around it to w.
// The XML is stored verbatim as word/document.xml.
func NewPackage(documentXML []byte, w io.Writer) error {
	if err := ValidateDocumentXML(documentXML); err != nil {
		return err
	}

	base, err := skeleton()
	if err != nil {
		return fmt.Errorf("%w: build skeleton: %v", apperr.ErrInternal, err)
	}

	rd, err := docx.ReadDocxFromMemory(bytes.NewReader(base), int64(len(base)))
	if err != nil {
		return fmt.Errorf("%w: open skeleton: %v", apperr.ErrInternal, err)
	}
	defer rd.Close()

	doc := rd.Editable()
	doc.SetContent(string(documentXML))
	if err := doc.Write(w); err != nil {
		return fmt.Errorf("%w: write package: %v", apperr.ErrInternal, err)
	}
	return nil
}
