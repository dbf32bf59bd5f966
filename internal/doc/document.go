// Package doc wraps an HTML node tree with the capabilities the scanner,
// renderer, watcher, and overlay need: traversal, span wrapping, subtree
// categories, a synthetic text-flow layout for on-screen positions, and a
// stream of structural mutation events.
//
// A Document is owned by one goroutine (the page loop). Only the
// subscription registry is safe for concurrent use.
package doc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrRangeInvalid is returned when a span can no longer be applied: the
// leaf was detached, replaced, or its text changed since it was scanned.
var ErrRangeInvalid = errors.New("range no longer applies")

// Document is a mutable HTML content tree.
type Document struct {
	root   *html.Node
	body   *html.Node
	layout Layout

	flow      map[*html.Node]flowPos
	flowValid bool

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]subscriber
}

type subscriber struct {
	ch   chan Mutation
	keep func(Mutation) bool
}

// New wraps an already-parsed tree. A body element is created when the
// tree has none.
func New(root *html.Node, layout Layout) *Document {
	d := &Document{
		root:   root,
		layout: layout.withDefaults(),
		subs:   make(map[int]subscriber),
	}
	d.body = findBody(root)
	if d.body == nil {
		d.body = Element(atom.Body)
		root.AppendChild(d.body)
	}
	return d
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, layout Layout) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return New(root, layout), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string, layout Layout) (*Document, error) {
	return Parse(strings.NewReader(s), layout)
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, the parent of overlay and toast nodes.
func (d *Document) Body() *html.Node { return d.body }

// Layout returns the layout parameters used for positions.
func (d *Document) Layout() Layout { return d.layout }

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML returns the rendered document.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// FindAll returns every node under the root satisfying pred, in pre-order.
func (d *Document) FindAll(pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(d.root, func(n *html.Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Markers returns every marker element currently in the tree.
func (d *Document) Markers() []*html.Node {
	return d.FindAll(IsMarker)
}

// Contains reports whether n is attached under the document root.
func (d *Document) Contains(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Engine mutations
// ---------------------------------------------------------------------------

// WrapSpan wraps leaf.Data[start:end] in a new marker carrying token. The
// original leaf keeps the text before the span, so offsets below start
// remain valid for further wraps on the same leaf.
func (d *Document) WrapSpan(leaf *html.Node, start, end int, token string) (*html.Node, error) {
	if leaf == nil || leaf.Type != html.TextNode || leaf.Parent == nil || !d.Contains(leaf) {
		return nil, ErrRangeInvalid
	}
	if start < 0 || end <= start || end > len(leaf.Data) {
		return nil, ErrRangeInvalid
	}
	if leaf.Data[start:end] != token {
		return nil, ErrRangeInvalid
	}

	parent := leaf.Parent
	before, span, after := leaf.Data[:start], leaf.Data[start:end], leaf.Data[end:]

	marker := Element(atom.Span, "class", MarkerClass, TokenAttr, token)
	marker.AppendChild(Text(span))

	next := leaf.NextSibling
	parent.InsertBefore(marker, next)
	added := []*html.Node{marker}
	if after != "" {
		tail := Text(after)
		parent.InsertBefore(tail, next)
		added = append(added, tail)
	}
	leaf.Data = before

	d.emit(Mutation{Kind: MutationChildList, Origin: OriginEngine, Target: parent, Added: added})
	return marker, nil
}

// Unwrap replaces a marker with a plain text node holding its text and
// merges that node with adjacent text siblings.
func (d *Document) Unwrap(marker *html.Node) error {
	if marker == nil || marker.Parent == nil {
		return ErrRangeInvalid
	}
	parent := marker.Parent
	tn := Text(TextContent(marker))
	parent.InsertBefore(tn, marker)
	parent.RemoveChild(marker)

	if prev := tn.PrevSibling; prev != nil && prev.Type == html.TextNode {
		prev.Data += tn.Data
		parent.RemoveChild(tn)
		tn = prev
	}
	if next := tn.NextSibling; next != nil && next.Type == html.TextNode {
		tn.Data += next.Data
		parent.RemoveChild(next)
	}

	d.emit(Mutation{Kind: MutationChildList, Origin: OriginEngine, Target: parent, Added: []*html.Node{tn}, Removed: []*html.Node{marker}})
	return nil
}

// Attach appends an engine-owned node (overlay, toast) to the body.
func (d *Document) Attach(n *html.Node) {
	d.body.AppendChild(n)
	d.emit(Mutation{Kind: MutationChildList, Origin: OriginEngine, Target: d.body, Added: []*html.Node{n}})
}

// Detach removes an engine-owned node. Detached nodes are ignored.
func (d *Document) Detach(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	parent := n.Parent
	parent.RemoveChild(n)
	d.emit(Mutation{Kind: MutationChildList, Origin: OriginEngine, Target: parent, Removed: []*html.Node{n}})
}

// ---------------------------------------------------------------------------
// Host mutations
// ---------------------------------------------------------------------------

// AppendChild appends child to parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	parent.AppendChild(child)
	d.emit(Mutation{Kind: MutationChildList, Origin: OriginHost, Target: parent, Added: []*html.Node{child}})
}

// InsertBefore inserts child before ref under parent; a nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	parent.InsertBefore(child, ref)
	d.emit(Mutation{Kind: MutationChildList, Origin: OriginHost, Target: parent, Added: []*html.Node{child}})
}

// RemoveChild removes child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) {
	parent.RemoveChild(child)
	d.emit(Mutation{Kind: MutationChildList, Origin: OriginHost, Target: parent, Removed: []*html.Node{child}})
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes as one mutation. A nil parent means the body.
func (d *Document) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	if parent == nil {
		parent = d.body
	}
	context := parent
	if context.Type != html.ElementNode {
		context = d.body
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.emit(Mutation{Kind: MutationChildList, Origin: OriginHost, Target: parent, Added: nodes})
	}
	return nodes, nil
}

// SetAttr sets an attribute and notifies subscribers.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	SetAttr(n, key, val)
	d.emit(Mutation{Kind: MutationAttributes, Origin: OriginHost, Target: n, Attr: key})
}

// SetText replaces the data of a text node.
func (d *Document) SetText(n *html.Node, text string) {
	n.Data = text
	d.emit(Mutation{Kind: MutationCharacterData, Origin: OriginHost, Target: n})
}

func findBody(root *html.Node) *html.Node {
	var body *html.Node
	Walk(root, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return body
}
