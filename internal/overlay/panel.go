package overlay

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tickermark/internal/doc"
	"tickermark/internal/domain"
)

// Panel geometry in viewport pixels.
const (
	PanelWidth  = 220
	PanelHeight = 120

	pointerOffset = 10
	edgeMargin    = 10
)

// Toggle button labels.
const (
	LabelPending = "Checking watchlist..."
	LabelAdd     = "Add to Watchlist"
	LabelRemove  = "Remove from Watchlist"
	LabelAlert   = "Create Alert"
)

const (
	actionClass  = "tickermark-action"
	pendingClass = "tickermark-pending"
	memberClass  = "tickermark-in-watchlist"
	symbolClass  = "tickermark-overlay-symbol"
	headerClass  = "tickermark-overlay-header"
	closeGlyph   = "×"
)

// Place positions a panel of size near pointer so it stays inside the
// viewport: below-right of the pointer by default, flipped above when it
// would overflow the bottom edge, shifted left when it would overflow the
// right edge.
func Place(pointer domain.Point, panel, viewport domain.Size) domain.Point {
	x := pointer.X + pointerOffset
	y := pointer.Y + pointerOffset
	if x+panel.Width > viewport.Width {
		x = viewport.Width - panel.Width - edgeMargin
	}
	if y+panel.Height > viewport.Height {
		y = pointer.Y - panel.Height - pointerOffset
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return domain.Point{X: x, Y: y}
}

// panel holds the overlay element and the control whose label changes.
type panel struct {
	root   *html.Node
	toggle *html.Node
}

func buildPanel(token string, at domain.Point) *panel {
	root := doc.Element(atom.Div,
		"id", doc.OverlayID,
		"class", doc.OverlayClass,
		"style", fmt.Sprintf("position:fixed;left:%.0fpx;top:%.0fpx;width:%dpx", at.X, at.Y, PanelWidth),
	)

	header := doc.Element(atom.Div, "class", headerClass)
	sym := doc.Element(atom.Span, "class", symbolClass)
	sym.AppendChild(doc.Text(token))
	closeBtn := doc.Element(atom.Button, ActionAttr, string(ActionClose), "title", "Close")
	closeBtn.AppendChild(doc.Text(closeGlyph))
	header.AppendChild(sym)
	header.AppendChild(closeBtn)

	alert := doc.Element(atom.Button, ActionAttr, string(ActionAlert), "class", actionClass)
	alert.AppendChild(doc.Text(LabelAlert))

	toggle := doc.Element(atom.Button,
		ActionAttr, string(ActionWatchlist),
		"class", actionClass+" "+pendingClass,
		"disabled", "",
	)
	toggle.AppendChild(doc.Text(LabelPending))

	root.AppendChild(header)
	root.AppendChild(alert)
	root.AppendChild(toggle)
	return &panel{root: root, toggle: toggle}
}

// setMembership switches the toggle from its pending look to add or remove.
func (p *panel) setMembership(m domain.Membership) {
	doc.ToggleClass(p.toggle, pendingClass, false)
	doc.ToggleClass(p.toggle, memberClass, m.Member)
	doc.RemoveAttr(p.toggle, "disabled")
	label := LabelAdd
	if m.Member {
		label = LabelRemove
	}
	p.toggle.FirstChild.Data = label
}

// ToggleLabel returns the current label of the watchlist control in an
// overlay element, or "" when n is not an overlay.
func ToggleLabel(n *html.Node) string {
	if !doc.IsOverlay(n) {
		return ""
	}
	var label string
	doc.Walk(n, func(c *html.Node) bool {
		if v, ok := doc.Attr(c, ActionAttr); ok && Action(v) == ActionWatchlist {
			label = doc.TextContent(c)
			return false
		}
		return label == ""
	})
	return label
}
