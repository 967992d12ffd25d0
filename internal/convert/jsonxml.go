package convert

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/docxpress/internal/apperr"
)

// DefaultRoot is the root element name used by JSONToXML.
const DefaultRoot = "root"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" ?>`

var xmlNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// JSONToXML converts a JSON document to XML under a root element. Object keys
// become child elements in document order, array entries become <item>
// elements, scalars become text and null becomes an empty element. Keys that
// are not XML names are emitted as <key name="...">.
func JSONToXML(r io.Reader, root string) ([]byte, error) {
	if root == "" {
		root = DefaultRoot
	}
	if !validXMLName(root) {
		return nil, apperr.Invalid(fmt.Sprintf("invalid root element name %q", root))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrInternal, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperr.Invalid("Invalid JSON: empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	enc := xml.NewEncoder(&buf)

	w := &jsonXMLWriter{dec: dec, enc: enc}
	if err := w.value(xml.StartElement{Name: xml.Name{Local: root}}); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperr.Invalid("Invalid JSON: unexpected data after top-level value")
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: flush xml: %v", apperr.ErrInternal, err)
	}
	return buf.Bytes(), nil
}

type jsonXMLWriter struct {
	dec *json.Decoder
	enc *xml.Encoder
}

func (w *jsonXMLWriter) next() (json.Token, error) {
	tok, err := w.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Invalid("Invalid JSON: unexpected end of input")
	}
	if err != nil {
		return nil, apperr.Invalid(fmt.Sprintf("Invalid JSON: %v", err))
	}
	return tok, nil
}

func (w *jsonXMLWriter) value(start xml.StartElement) error {
	tok, err := w.next()
	if err != nil {
		return err
	}

	if err := w.enc.EncodeToken(start); err != nil {
		return fmt.Errorf("%w: encode xml: %v", apperr.ErrInternal, err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			for w.dec.More() {
				keyTok, err := w.next()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return apperr.Invalid("Invalid JSON: object key is not a string")
				}
				if err := w.value(elementFor(key)); err != nil {
					return err
				}
			}
		case '[':
			for w.dec.More() {
				if err := w.value(xml.StartElement{Name: xml.Name{Local: "item"}}); err != nil {
					return err
				}
			}
		}
		// closing delimiter
		if _, err := w.next(); err != nil {
			return err
		}
	case string:
		if err := w.text(v); err != nil {
			return err
		}
	case json.Number:
		if err := w.text(v.String()); err != nil {
			return err
		}
	case bool:
		if err := w.text(strconv.FormatBool(v)); err != nil {
			return err
		}
	case nil:
	}

	if err := w.enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("%w: encode xml: %v", apperr.ErrInternal, err)
	}
	return nil
}

func (w *jsonXMLWriter) text(s string) error {
	if err := w.enc.EncodeToken(xml.CharData(s)); err != nil {
		return fmt.Errorf("%w: encode xml: %v", apperr.ErrInternal, err)
	}
	return nil
}

func validXMLName(name string) bool {
	return xmlNameRe.MatchString(name) && !strings.HasPrefix(strings.ToLower(name), "xml")
}

// elementFor maps a JSON key to an element: digits get an "n" prefix, spaces
// become underscores, anything else invalid becomes <key name="...">.
func elementFor(key string) xml.StartElement {
	if validXMLName(key) {
		return xml.StartElement{Name: xml.Name{Local: key}}
	}
	if _, err := strconv.Atoi(key); err == nil && !strings.HasPrefix(key, "-") {
		return xml.StartElement{Name: xml.Name{Local: "n" + key}}
	}
	if underscored := strings.ReplaceAll(key, " ", "_"); validXMLName(underscored) {
		return xml.StartElement{Name: xml.Name{Local: underscored}}
	}
	return xml.StartElement{
		Name: xml.Name{Local: "key"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: key}},
	}
}
