package engine

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// glyph is one character as reported by the text backends
type glyph struct {
	font string
	size float64
	x    float64
	y    float64
	w    float64
	s    string
}

// run tolerances, relative to the font size
const (
	baselineTolerance = 0.1
	advanceTolerance  = 0.3
)

// coalesce merges consecutive glyphs that share font, size and baseline and
// follow each other on the advance direction into one text run. The
// backends report one entry per character; runs are what a show-text
// operator produced.
func coalesce(glyphs []glyph, form string) []TextItem {
	items := make([]TextItem, 0, len(glyphs)/4+1)
	if len(glyphs) == 0 {
		return items
	}

	var (
		cur  TextItem
		end  float64
		size float64
		text strings.Builder
	)
	flush := func() {
		cur.Str = normalize(text.String(), form)
		cur.Width = end - cur.X
		items = append(items, cur)
		text.Reset()
	}
	start := func(g glyph) {
		cur = TextItem{X: g.x, Y: g.y, Height: g.size, Font: g.font}
		size = g.size
		end = g.x + g.w
		text.WriteString(g.s)
	}

	start(glyphs[0])
	for _, g := range glyphs[1:] {
		tol := math.Max(size, 1)
		sameRun := g.font == cur.Font &&
			math.Abs(g.size-size) < 0.01 &&
			math.Abs(g.y-cur.Y) <= baselineTolerance*tol &&
			g.x-end >= -advanceTolerance*tol &&
			g.x-end <= advanceTolerance*tol
		if !sameRun {
			flush()
			start(g)
			continue
		}
		text.WriteString(g.s)
		end = math.Max(end, g.x+g.w)
	}
	flush()

	return items
}

// normalize applies the configured Unicode normalization form
func normalize(s, form string) string {
	switch strings.ToUpper(form) {
	case "NFC":
		return norm.NFC.String(s)
	case "NFKC":
		return norm.NFKC.String(s)
	default:
		return s
	}
}
