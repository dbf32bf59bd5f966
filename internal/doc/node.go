package doc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Marker and overlay markup. MarkerSelector is the stable contract page
// tooling uses to find annotations.
const (
	MarkerClass    = "tickermark-highlight"
	HoverClass     = "tickermark-hover"
	TokenAttr      = "data-ticker"
	MarkerSelector = "span." + MarkerClass + "[" + TokenAttr + "]"

	OverlayID    = "tickermark-overlay"
	OverlayClass = "tickermark-overlay"
	ToastClass   = "tickermark-toast"
)

// skippedTags hold code-like or non-rendered content the scanner never
// descends into.
var skippedTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Code:     true,
	atom.Pre:      true,
	atom.Textarea: true,
	atom.Template: true,
	atom.Kbd:      true,
	atom.Samp:     true,
	atom.Svg:      true,
	atom.Math:     true,
	atom.Iframe:   true,
	atom.Head:     true,
	atom.Title:    true,
}

// nonRendered elements contribute nothing to the text flow.
var nonRendered = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Title:    true,
	atom.Noscript: true,
}

var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true,
	atom.Blockquote: true, atom.Body: true, atom.Dd: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
}

// IsBlock reports whether n starts a new line in the text flow.
func IsBlock(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && blockTags[n.DataAtom]
}

// NonRendered reports whether n contributes nothing to the text flow.
func NonRendered(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && nonRendered[n.DataAtom]
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute in place. It does not notify
// subscribers; use Document.SetAttr for host-visible changes.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether the element's class list contains class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// ToggleClass adds or removes class from the element's class list.
func ToggleClass(n *html.Node, class string, on bool) {
	v, _ := Attr(n, "class")
	fields := strings.Fields(v)
	out := fields[:0]
	for _, c := range fields {
		if c != class {
			out = append(out, c)
		}
	}
	if on {
		out = append(out, class)
	}
	SetAttr(n, "class", strings.Join(out, " "))
}

// IsMarker reports whether n is a highlight marker element.
func IsMarker(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.Span {
		return false
	}
	if _, ok := Attr(n, TokenAttr); !ok {
		return false
	}
	return HasClass(n, MarkerClass)
}

// IsOverlay reports whether n is the root of the overlay panel.
func IsOverlay(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	id, _ := Attr(n, "id")
	return id == OverlayID
}

// IsToast reports whether n is a transient message element.
func IsToast(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && HasClass(n, ToastClass)
}

// Excluded reports whether the element's subtree is opaque to scanning:
// code-like containers, editable regions, markers, the overlay, and toasts.
func Excluded(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if skippedTags[n.DataAtom] {
		return true
	}
	if v, ok := Attr(n, "contenteditable"); ok && (v == "" || strings.EqualFold(v, "true")) {
		return true
	}
	return IsMarker(n) || IsOverlay(n) || IsToast(n)
}

// ClosestAncestor returns the nearest of n and its ancestors satisfying pred.
func ClosestAncestor(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if pred(n) {
			return n
		}
	}
	return nil
}

// TextContent concatenates every text node under n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		// Capture next first so fn may detach c.
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// Element builds a detached element node with the given attributes as
// key/value pairs.
func Element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func displayNone(n *html.Node) bool {
	style, ok := Attr(n, "style")
	if !ok {
		return false
	}
	compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(compact, "display:none")
}

func hiddenElement(n *html.Node) bool {
	if _, ok := Attr(n, "hidden"); ok {
		return true
	}
	return displayNone(n)
}
