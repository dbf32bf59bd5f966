package overlay

import (
	"golang.org/x/net/html"

	"tickermark/internal/doc"
)

// Action is an overlay control.
type Action string

const (
	ActionNone      Action = ""
	ActionAlert     Action = "alert"
	ActionWatchlist Action = "watchlist"
	ActionClose     Action = "close"
)

// ActionAttr names the attribute carrying a control's Action.
const ActionAttr = "data-action"

// TargetKind tags what a click landed on.
type TargetKind int

const (
	TargetOutside TargetKind = iota
	TargetMarker
	TargetOverlay
)

func (k TargetKind) String() string {
	switch k {
	case TargetMarker:
		return "marker"
	case TargetOverlay:
		return "overlay"
	default:
		return "outside"
	}
}

// Target is a classified click target. Token is set for markers; Action is
// set for overlay controls and is ActionNone for the panel background.
type Target struct {
	Kind   TargetKind
	Token  string
	Action Action
	Node   *html.Node
}

// Classify inspects n and its ancestors once and reports what was clicked.
// The overlay wins over markers because its subtree is never annotated.
func Classify(n *html.Node) Target {
	if panel := doc.ClosestAncestor(n, doc.IsOverlay); panel != nil {
		t := Target{Kind: TargetOverlay, Node: panel}
		for c := n; c != nil && c != panel.Parent; c = c.Parent {
			if hasAction(c) {
				v, _ := doc.Attr(c, ActionAttr)
				t.Action = Action(v)
				t.Node = c
				break
			}
		}
		return t
	}
	if m := doc.ClosestAncestor(n, doc.IsMarker); m != nil {
		tok, _ := doc.Attr(m, doc.TokenAttr)
		return Target{Kind: TargetMarker, Token: tok, Node: m}
	}
	return Target{Kind: TargetOutside, Node: n}
}

func hasAction(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	_, ok := doc.Attr(n, ActionAttr)
	return ok
}
