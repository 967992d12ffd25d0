package ooxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docxpress/internal/apperr"
)

// Body is the paragraph/run view of a main document part.
type Body struct {
	Paragraphs []Paragraph
}

// Paragraph is a w:p. Index is its preorder position in the document, so
// paragraphs nested in tables or text boxes get their own index.
type Paragraph struct {
	Index int
	Runs  []Run
}

// Run is a w:r whose nearest enclosing paragraph is the owning Paragraph.
type Run struct {
	Index     int
	Text      string
	Highlight *HighlightMark
}

// HighlightMark records a w:highlight found in a run's own properties.
type HighlightMark struct {
	Val string
}

// HighlightColor resolves the run's highlight, reporting false when the run
// has none or its value is null or unrecognised.
func (r Run) HighlightColor() (HighlightColor, bool) {
	if r.Highlight == nil {
		return "", false
	}
	return ParseHighlight(r.Highlight.Val)
}

// Text joins run text with paragraphs separated by newlines.
func (b *Body) Text() string {
	lines := make([]string, len(b.Paragraphs))
	for i, p := range b.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			sb.WriteString(r.Text)
		}
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// RunCount returns the number of runs across all paragraphs.
func (b *Body) RunCount() int {
	n := 0
	for _, p := range b.Paragraphs {
		n += len(p.Runs)
	}
	return n
}

type openParagraph struct {
	depth int
	para  *Paragraph
}

type openRun struct {
	depth     int
	para      *Paragraph
	slot      int
	rPrDepth  int
	inText    bool
	text      strings.Builder
	highlight *HighlightMark
}

// Parse reads word/document.xml into a Body. It never modifies data.
// mc:Fallback branches are skipped so alternate content is not counted twice.
func Parse(data []byte) (*Body, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		stack      []xml.Name
		paragraphs []*Paragraph
		openParas  []openParagraph
		openRuns   []*openRun
	)

	currentRun := func() *openRun {
		if len(openRuns) == 0 {
			return nil
		}
		return openRuns[len(openRuns)-1]
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Malformed(fmt.Sprintf("Invalid XML format: %v", err))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == NamespaceMC && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, apperr.Malformed(fmt.Sprintf("Invalid XML format: %v", err))
				}
				continue
			}

			stack = append(stack, t.Name)
			depth := len(stack)
			if t.Name.Space != NamespaceW {
				continue
			}

			cur := currentRun()
			switch t.Name.Local {
			case "p":
				p := &Paragraph{Index: len(paragraphs)}
				paragraphs = append(paragraphs, p)
				openParas = append(openParas, openParagraph{depth: depth, para: p})
			case "r":
				run := &openRun{depth: depth, slot: -1}
				if len(openParas) > 0 {
					p := openParas[len(openParas)-1].para
					p.Runs = append(p.Runs, Run{Index: len(p.Runs)})
					run.para = p
					run.slot = len(p.Runs) - 1
				}
				openRuns = append(openRuns, run)
			case "rPr":
				if cur != nil && depth == cur.depth+1 {
					cur.rPrDepth = depth
				}
			case "highlight":
				if cur != nil && cur.rPrDepth != 0 && depth == cur.rPrDepth+1 {
					cur.highlight = &HighlightMark{Val: attrValue(t, "val")}
				}
			case "t":
				if cur != nil && depth == cur.depth+1 {
					cur.inText = true
				}
			case "tab":
				if cur != nil && depth == cur.depth+1 {
					cur.text.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil && depth == cur.depth+1 {
					cur.text.WriteByte('\n')
				}
			}

		case xml.EndElement:
			depth := len(stack)
			if depth == 0 {
				continue
			}
			name := stack[depth-1]
			stack = stack[:depth-1]
			if name.Space != NamespaceW {
				continue
			}

			cur := currentRun()
			switch name.Local {
			case "p":
				if n := len(openParas); n > 0 && openParas[n-1].depth == depth {
					openParas = openParas[:n-1]
				}
			case "r":
				if cur != nil && cur.depth == depth {
					if cur.para != nil {
						cur.para.Runs[cur.slot].Text = cur.text.String()
						cur.para.Runs[cur.slot].Highlight = cur.highlight
					}
					openRuns = openRuns[:len(openRuns)-1]
				}
			case "rPr":
				if cur != nil && cur.rPrDepth == depth {
					cur.rPrDepth = 0
				}
			case "t":
				if cur != nil && depth == cur.depth+1 {
					cur.inText = false
				}
			}

		case xml.CharData:
			if cur := currentRun(); cur != nil && cur.inText {
				cur.text.Write(t)
			}
		}
	}

	body := &Body{Paragraphs: make([]Paragraph, len(paragraphs))}
	for i, p := range paragraphs {
		body.Paragraphs[i] = *p
	}
	return body, nil
}

// attrValue returns the w:-namespaced attribute local, falling back to an
// unqualified attribute of the same name.
func attrValue(el xml.StartElement, local string) string {
	fallback := ""
	for _, a := range el.Attr {
		if a.Name.Local != local {
			continue
		}
		if a.Name.Space == NamespaceW {
			return a.Value
		}
		if a.Name.Space == "" {
			fallback = a.Value
		}
	}
	return fallback
}
