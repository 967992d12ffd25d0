package ooxml

import (
	"strconv"
	"strings"
)

// HighlightColor is a canonical ST_HighlightColor name such as "yellow".
type HighlightColor string

// Highlight colors in color-index order: the numeric code of a color is its
// position in this list plus one (0 means automatic / no highlight).
var highlightColors = []HighlightColor{
	"black",
	"blue",
	"cyan",
	"green",
	"magenta",
	"red",
	"yellow",
	"white",
	"darkBlue",
	"darkCyan",
	"darkGreen",
	"darkMagenta",
	"darkRed",
	"darkYellow",
	"darkGray",
	"lightGray",
}

// DefaultHighlight is what a w:highlight element without w:val resolves to.
const DefaultHighlight HighlightColor = "yellow"

var highlightByName = func() map[string]HighlightColor {
	m := make(map[string]HighlightColor, len(highlightColors))
	for _, c := range highlightColors {
		m[strings.ToLower(string(c))] = c
	}
	return m
}()

// HighlightColors returns every recognised color in color-index order.
func HighlightColors() []HighlightColor {
	out := make([]HighlightColor, len(highlightColors))
	copy(out, highlightColors)
	return out
}

// ParseHighlight resolves a raw w:val to its canonical color. It reports false
// for null values ("none", "auto", "0") and for anything unrecognised.
func ParseHighlight(val string) (HighlightColor, bool) {
	v := strings.TrimSpace(val)
	if v == "" {
		return DefaultHighlight, true
	}

	if n, err := strconv.Atoi(v); err == nil {
		if n >= 1 && n <= len(highlightColors) {
			return highlightColors[n-1], true
		}
		return "", false
	}

	switch strings.ToLower(v) {
	case "none", "auto":
		return "", false
	}
	c, ok := highlightByName[strings.ToLower(v)]
	return c, ok
}
