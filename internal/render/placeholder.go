package render

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/docxpress/internal/ooxml"
)

// markerRe matches {{ name }} in paragraph text.
var markerRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// run is a w:r element located by byte offsets into the part XML.
type run struct {
	start        int    // '<' of <w:r>
	contentStart int    // first byte after the start tag and its w:rPr
	closeStart   int    // '<' of </w:r>
	end          int    // first byte after </w:r>
	rPr          string // raw w:rPr element, "" when the run has none
	rPrStart     int
	rPrDepth     int // stack depth of the open w:rPr, 0 when none is open
}

// textNode is a w:t element that is a direct child of a run.
type textNode struct {
	start, end int // the whole <w:t ...>...</w:t> element
	text       string
	para       int // nearest enclosing paragraph, -1 outside any
	run        *run
}

// headEmpty reports whether nothing but whitespace precedes the node in its run.
func (n *textNode) headEmpty(src string) bool {
	return strings.TrimSpace(src[n.run.contentStart:n.start]) == ""
}

// tailEmpty reports whether nothing but whitespace follows the node in its run.
func (n *textNode) tailEmpty(src string) bool {
	return strings.TrimSpace(src[n.end:n.run.closeStart]) == ""
}

func isW(name xml.Name, local string) bool {
	return name.Space == ooxml.NamespaceW && name.Local == local
}

// scanText walks a WordprocessingML part and returns its run text elements in
// document order. Attribute values and field instructions are never text.
func scanText(src string) ([]*textNode, error) {
	dec := xml.NewDecoder(strings.NewReader(src))

	var (
		stack    []xml.Name
		paras    []int
		nextPara int
		runs     []*run
		nodes    []*textNode
		open     *textNode
	)

	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := xml.Name{}
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, t.Name)
			if t.Name.Space != ooxml.NamespaceW {
				continue
			}

			switch t.Name.Local {
			case "p":
				paras = append(paras, nextPara)
				nextPara++
			case "r":
				runs = append(runs, &run{start: offset, contentStart: int(dec.InputOffset())})
			case "rPr":
				if len(runs) > 0 && isW(parent, "r") {
					r := runs[len(runs)-1]
					r.rPrStart, r.rPrDepth = offset, len(stack)
				}
			case "t":
				if len(runs) > 0 && isW(parent, "r") {
					para := -1
					if len(paras) > 0 {
						para = paras[len(paras)-1]
					}
					open = &textNode{start: offset, para: para, run: runs[len(runs)-1]}
				}
			}

		case xml.EndElement:
			depth := len(stack)
			stack = stack[:len(stack)-1]
			if t.Name.Space != ooxml.NamespaceW {
				continue
			}

			end := int(dec.InputOffset())
			switch t.Name.Local {
			case "p":
				if len(paras) > 0 {
					paras = paras[:len(paras)-1]
				}
			case "r":
				if len(runs) > 0 {
					r := runs[len(runs)-1]
					r.closeStart, r.end = offset, end
					runs = runs[:len(runs)-1]
				}
			case "rPr":
				if len(runs) > 0 {
					r := runs[len(runs)-1]
					if r.rPrDepth == depth {
						r.rPr = src[r.rPrStart:end]
						r.contentStart = end
						r.rPrDepth = 0
					}
				}
			case "t":
				if open != nil {
					open.end = end
					nodes = append(nodes, open)
					open = nil
				}
			}

		case xml.CharData:
			if open != nil {
				open.text += string(t)
			}
		}
	}
	return nodes, nil
}

// marker is one placeholder occurrence within a paragraph's joined text.
type marker struct {
	start, end int
	literal    string
	name       string
}

// piece is either literal text or a marker, in the order they appear in a node.
type piece struct {
	text   string
	marker *marker
}

// paragraphPieces joins the text of each paragraph and assigns every marker
// to the node where it starts, so markers Word split over several runs are
// handled as one. Markers never span paragraphs.
func paragraphPieces(nodes []*textNode) map[*textNode][]piece {
	out := make(map[*textNode][]piece, len(nodes))

	var groups [][]*textNode
	byPara := map[int]int{}
	for _, n := range nodes {
		if n.para < 0 {
			groups = append(groups, []*textNode{n})
			continue
		}
		i, ok := byPara[n.para]
		if !ok {
			i = len(groups)
			byPara[n.para] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], n)
	}

	for _, group := range groups {
		var joined strings.Builder
		var owner []int
		for i, n := range group {
			joined.WriteString(n.text)
			for range len(n.text) {
				owner = append(owner, i)
			}
		}
		text := joined.String()

		starts := map[int]*marker{}
		for _, loc := range markerRe.FindAllStringSubmatchIndex(text, -1) {
			starts[loc[0]] = &marker{
				start:   loc[0],
				end:     loc[1],
				literal: text[loc[0]:loc[1]],
				name:    text[loc[2]:loc[3]],
			}
		}

		bufs := make([]strings.Builder, len(group))
		flush := func(i int) {
			if bufs[i].Len() > 0 {
				out[group[i]] = append(out[group[i]], piece{text: bufs[i].String()})
				bufs[i].Reset()
			}
		}
		for p := 0; p < len(text); {
			i := owner[p]
			if m, ok := starts[p]; ok {
				flush(i)
				out[group[i]] = append(out[group[i]], piece{marker: m})
				p = m.end
				continue
			}
			bufs[i].WriteByte(text[p])
			p++
		}
		for i := range group {
			flush(i)
		}
	}
	return out
}

// changed reports whether a node's pieces differ from its original text.
func changed(n *textNode, pieces []piece) bool {
	if len(pieces) == 0 {
		return n.text != ""
	}
	return len(pieces) != 1 || pieces[0].marker != nil || pieces[0].text != n.text
}

// Unresolved lists the names of placeholders still present in a part XML,
// sorted and without duplicates. Unparsable XML yields no names.
func Unresolved(src string) []string {
	nodes, err := scanText(src)
	if err != nil {
		return nil
	}
	set := map[string]bool{}
	for _, pieces := range paragraphPieces(nodes) {
		for _, p := range pieces {
			if p.marker != nil {
				set[p.marker.name] = true
			}
		}
	}
	return sortedNames(set)
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
