package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/docxpress/internal/apperr"
)

// Request is the body of a render call.
type Request struct {
	Data     map[string]Value `json:"data"`
	Template string           `json:"template,omitempty"`
}

// Style carries the run properties of a rich value.
type Style struct {
	Bold      bool    `json:"bold"`
	Italic    bool    `json:"italic"`
	Underline bool    `json:"underline"`
	Color     string  `json:"color"`
	Size      float64 `json:"size"`
	Font      string  `json:"font"`
}

// Value is one substitution. Plain values have a nil Style.
type Value struct {
	Text  string
	Style *Style
}

// Text returns a plain value.
func Text(s string) Value { return Value{Text: s} }

// Rich returns a styled value.
func Rich(s string, style Style) Value { return Value{Text: s, Style: &style} }

// IsRich reports whether the value carries styling.
func (v Value) IsRich() bool { return v.Style != nil }

var hexColorRe = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

type richJSON struct {
	Text string `json:"text"`
	Style
}

// UnmarshalJSON accepts a string, number, bool, null or a rich object
// {"text", "bold", "italic", "underline", "color", "size", "font"}.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case 'n':
		*v = Value{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Text(fmt.Sprint(b))
		return nil
	case '{':
		var r richJSON
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		r.Color = strings.TrimPrefix(r.Color, "#")
		if r.Color != "" && !hexColorRe.MatchString(r.Color) {
			return fmt.Errorf("color %q is not a 6-digit hex value", r.Color)
		}
		if r.Size < 0 || r.Size > 1638 {
			return fmt.Errorf("size %v out of range", r.Size)
		}
		*v = Rich(r.Text, r.Style)
		return nil
	case '[':
		return fmt.Errorf("arrays are not supported as values")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Text(n.String())
		return nil
	}
}

// halfPoints converts a point size to the w:sz unit.
func (s Style) halfPoints() int {
	return int(math.Round(s.Size * 2))
}

// ParseRequest decodes a render request. data must be a JSON object.
func ParseRequest(r io.Reader) (*Request, error) {
	var raw struct {
		Data     json.RawMessage `json:"data"`
		Template string          `json:"template"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Invalid(fmt.Sprintf("Invalid JSON: %v", err))
	}

	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || data[0] != '{' {
		return nil, apperr.Invalid("Field 'data' must be a JSON object")
	}

	req := &Request{Template: raw.Template}
	if err := json.Unmarshal(data, &req.Data); err != nil {
		return nil, apperr.Invalid(fmt.Sprintf("Invalid template data: %v", err))
	}
	if req.Data == nil {
		req.Data = map[string]Value{}
	}
	return req, nil
}
