package doc

import (
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tickermark/internal/domain"
)

// Layout parameters for the synthetic text flow. Every rendered character
// occupies CharWidth; lines wrap at the viewport width; block elements and
// <br> start new lines.
type Layout struct {
	Viewport   domain.Size
	CharWidth  float64
	LineHeight float64
}

// DefaultLayout is a 1280x800 viewport with an 8x18 character cell.
func DefaultLayout() Layout {
	return Layout{
		Viewport:   domain.Size{Width: 1280, Height: 800},
		CharWidth:  8,
		LineHeight: 18,
	}
}

func (l Layout) withDefaults() Layout {
	def := DefaultLayout()
	if l.Viewport.Width <= 0 || l.Viewport.Height <= 0 {
		l.Viewport = def.Viewport
	}
	if l.CharWidth <= 0 {
		l.CharWidth = def.CharWidth
	}
	if l.LineHeight <= 0 {
		l.LineHeight = def.LineHeight
	}
	return l
}

func (l Layout) columns() int {
	cols := int(l.Viewport.Width / l.CharWidth)
	if cols < 1 {
		return 1
	}
	return cols
}

type flowPos struct {
	line, col int
	hidden    bool
}

// Position returns the on-screen rect of leaf.Data[start:end]. It fails
// with ErrRangeInvalid when the leaf is detached or not rendered, or when
// the span has no size.
func (d *Document) Position(leaf *html.Node, start, end int) (domain.Rect, error) {
	if leaf == nil || leaf.Type != html.TextNode || !d.Contains(leaf) {
		return domain.Rect{}, ErrRangeInvalid
	}
	if start < 0 || end <= start || end > len(leaf.Data) {
		return domain.Rect{}, ErrRangeInvalid
	}
	if !d.flowValid {
		d.computeFlow()
	}
	pos, ok := d.flow[leaf]
	if !ok || pos.hidden {
		return domain.Rect{}, ErrRangeInvalid
	}

	cols := d.layout.columns()
	offset := pos.col + utf8.RuneCountInString(leaf.Data[:start])
	line := pos.line + offset/cols
	col := offset % cols
	width := float64(utf8.RuneCountInString(leaf.Data[start:end])) * d.layout.CharWidth

	r := domain.Rect{
		X:      float64(col) * d.layout.CharWidth,
		Y:      float64(line) * d.layout.LineHeight,
		Width:  width,
		Height: d.layout.LineHeight,
	}
	if r.Empty() {
		return domain.Rect{}, ErrRangeInvalid
	}
	return r, nil
}

// computeFlow assigns a starting line/column to every rendered text node.
func (d *Document) computeFlow() {
	d.flow = make(map[*html.Node]flowPos)
	cols := d.layout.columns()
	line, col := 0, 0

	newline := func() {
		if col > 0 {
			line++
			col = 0
		}
	}

	var visit func(n *html.Node, hidden bool)
	visit = func(n *html.Node, hidden bool) {
		switch n.Type {
		case html.TextNode:
			d.flow[n] = flowPos{line: line, col: col, hidden: hidden}
			if hidden {
				return
			}
			col += utf8.RuneCountInString(n.Data)
			line += col / cols
			col %= cols
			return
		case html.ElementNode:
			if nonRendered[n.DataAtom] || IsOverlay(n) || IsToast(n) {
				return
			}
			hidden = hidden || hiddenElement(n)
			if n.DataAtom == atom.Br && !hidden {
				line++
				col = 0
				return
			}
			block := blockTags[n.DataAtom] && !hidden
			if block {
				newline()
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c, hidden)
			}
			if block {
				newline()
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c, hidden)
		}
	}
	visit(d.root, false)
	d.flowValid = true
}
