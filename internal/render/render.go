// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/convert"
	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/ooxml"
)

// MissingPolicy decides what happens to placeholders without a value.
type MissingPolicy string

const (
	// MissingEmpty removes the marker.
	MissingEmpty MissingPolicy = "empty"
	// MissingKeep leaves the marker in the output.
	MissingKeep MissingPolicy = "keep"
)

// TemplateSource loads template documents by name.
type TemplateSource interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// Options configures a Renderer.
type Options struct {
	DefaultTemplate string
	Missing         MissingPolicy
}

// Renderer fills templates from a TemplateSource.
type Renderer struct {
	source TemplateSource
	opts   Options
}

// Output is a rendered document.
type Output struct {
	Filename   string
	Template   string
	Data       []byte
	Unresolved []string
}

// New creates a Renderer. An empty Missing policy means MissingEmpty.
func New(source TemplateSource, opts Options) *Renderer {
	if opts.Missing == "" {
		opts.Missing = MissingEmpty
	}
	return &Renderer{source: source, opts: opts}
}

// Render loads req.Template (or the default template) and substitutes
// req.Data into it.
func (r *Renderer) Render(ctx context.Context, req *Request) (*Output, error) {
	name := req.Template
	if name == "" {
		name = r.opts.DefaultTemplate
	}
	if name == "" {
		return nil, apperr.Invalid("No template specified")
	}

	start := time.Now()
	tpl, err := r.source.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	data, unresolved, err := Apply(tpl, req.Data, r.opts.Missing)
	if err != nil {
		return nil, err
	}

	if len(unresolved) > 0 {
		logger.Warnf("template %s rendered with unresolved placeholders: %s", name, strings.Join(unresolved, ", "))
	}
	logger.Printf("rendered template %s with %d values in %s", name, len(req.Data), time.Since(start))

	return &Output{
		Filename:   convert.SwapExtension(name, "_rendered.docx"),
		Template:   name,
		Data:       data,
		Unresolved: unresolved,
	}, nil
}

// Apply renders a template document with values and returns the new
// document along with the names of placeholders left in its body, headers
// and footers.
func Apply(template []byte, values map[string]Value, missing MissingPolicy) ([]byte, []string, error) {
	doc, err := ooxml.Open(template)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	ed := doc.Editable()
	body, err := renderPart(ed.GetContent(), values, missing)
	if err != nil {
		return nil, nil, apperr.Malformed(fmt.Sprintf("Invalid template %s: %v", ooxml.MainPart, err))
	}
	ed.SetContent(body)

	var buf bytes.Buffer
	if err := ed.Write(&buf); err != nil {
		return nil, nil, fmt.Errorf("%w: write rendered document: %v", apperr.ErrInternal, err)
	}

	out, left, err := renderHeadersFooters(buf.Bytes(), values, missing)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range Unresolved(body) {
		left[name] = true
	}
	return out, sortedNames(left), nil
}

// isHeaderFooter reports whether a package part is a header or footer.
func isHeaderFooter(name string) bool {
	return path.Dir(name) == "word" && path.Ext(name) == ".xml" &&
		(strings.HasPrefix(path.Base(name), "header") || strings.HasPrefix(path.Base(name), "footer"))
}

// renderHeadersFooters renders every header and footer part of pkg and copies
// the other parts unchanged. It returns the placeholders left in those parts.
func renderHeadersFooters(pkg []byte, values map[string]Value, missing MissingPolicy) ([]byte, map[string]bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reopen rendered document: %v", apperr.ErrInternal, err)
	}

	left := map[string]bool{}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if !isHeaderFooter(f.Name) {
			if err := zw.Copy(f); err != nil {
				return nil, nil, fmt.Errorf("%w: copy part %s: %v", apperr.ErrInternal, f.Name, err)
			}
			continue
		}

		src, err := readPart(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read part %s: %v", apperr.ErrInternal, f.Name, err)
		}
		rendered, err := renderPart(src, values, missing)
		if err != nil {
			return nil, nil, apperr.Malformed(fmt.Sprintf("Invalid template %s: %v", f.Name, err))
		}
		for _, name := range Unresolved(rendered) {
			left[name] = true
		}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: write part %s: %v", apperr.ErrInternal, f.Name, err)
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return nil, nil, fmt.Errorf("%w: write part %s: %v", apperr.ErrInternal, f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, nil, fmt.Errorf("%w: finish rendered document: %v", apperr.ErrInternal, err)
	}
	return buf.Bytes(), left, nil
}

func readPart(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return string(data), err
}

type edit struct {
	start, end int
	text       string
}

// renderPart substitutes values into the run text of one part. Only the
// w:t elements that change are rewritten; everything else is kept byte for
// byte.
func renderPart(src string, values map[string]Value, missing MissingPolicy) (string, error) {
	nodes, err := scanText(src)
	if err != nil {
		return "", err
	}
	pieces := paragraphPieces(nodes)

	var edits []edit
	for _, n := range nodes {
		if p := pieces[n]; changed(n, p) {
			edits = append(edits, renderNode(src, n, p, values, missing))
		}
	}
	if len(edits) == 0 {
		return src, nil
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out strings.Builder
	out.Grow(len(src))
	last := 0
	for _, e := range edits {
		out.WriteString(src[last:e.start])
		out.WriteString(e.text)
		last = e.end
	}
	out.WriteString(src[last:])
	return out.String(), nil
}

// renderNode rewrites one w:t. Plain text stays in the run; each rich value
// closes the run, adds a styled run and reopens a run with the original
// properties. Runs left empty by the split are dropped.
func renderNode(src string, n *textNode, pieces []piece, values map[string]Value, missing MissingPolicy) edit {
	chunks := []string{""}
	var riches []Value
	for _, p := range pieces {
		if p.marker == nil {
			chunks[len(chunks)-1] += p.text
			continue
		}
		v, ok := values[p.marker.name]
		switch {
		case !ok && missing == MissingKeep:
			chunks[len(chunks)-1] += p.marker.literal
		case ok && v.IsRich():
			riches = append(riches, v)
			chunks = append(chunks, "")
		default:
			chunks[len(chunks)-1] += v.Text
		}
	}

	e := edit{start: n.start, end: n.end}
	var out strings.Builder
	lastChunk := len(chunks) - 1
	for i, c := range chunks {
		if i > 0 {
			out.WriteString(richRun(riches[i-1]))
			if i == lastChunk && c == "" && n.tailEmpty(src) {
				e.end = n.run.end
				break
			}
			out.WriteString(`<w:r>` + n.run.rPr)
		}
		if i == 0 && c == "" && lastChunk > 0 && n.headEmpty(src) {
			e.start = n.run.start
			continue
		}
		out.WriteString(textElements(c))
		if i < lastChunk {
			out.WriteString(`</w:r>`)
		}
	}
	e.text = out.String()
	return e
}

// textElements renders text as w:t elements, turning newlines into w:br.
func textElements(s string) string {
	if s == "" {
		return ""
	}
	var out strings.Builder
	for i, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if i > 0 {
			out.WriteString(`<w:br/>`)
		}
		if line != "" {
			out.WriteString(`<w:t xml:space="preserve">` + escapeText(line) + `</w:t>`)
		}
	}
	return out.String()
}

// richRun builds a w:r for a styled value. Property order follows CT_RPr.
func richRun(v Value) string {
	s := v.Style
	var props strings.Builder
	if s.Font != "" {
		f := escapeText(s.Font)
		fmt.Fprintf(&props, `<w:rFonts w:ascii="%s" w:hAnsi="%s" w:cs="%s"/>`, f, f, f)
	}
	if s.Bold {
		props.WriteString(`<w:b/><w:bCs/>`)
	}
	if s.Italic {
		props.WriteString(`<w:i/><w:iCs/>`)
	}
	if s.Color != "" {
		fmt.Fprintf(&props, `<w:color w:val="%s"/>`, strings.ToUpper(s.Color))
	}
	if hp := s.halfPoints(); hp > 0 {
		fmt.Fprintf(&props, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, hp, hp)
	}
	if s.Underline {
		props.WriteString(`<w:u w:val="single"/>`)
	}

	var run strings.Builder
	run.WriteString(`<w:r>`)
	if props.Len() > 0 {
		run.WriteString(`<w:rPr>` + props.String() + `</w:rPr>`)
	}
	run.WriteString(textElements(v.Text))
	run.WriteString(`</w:r>`)
	return run.String()
}

// escapeText escapes s for character data and attribute values.
func escapeText(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
