// Package highlight turns scan occurrences into marker elements and removes
// them again on teardown.
package highlight

import (
	"log/slog"
	"sort"

	"golang.org/x/net/html"

	"tickermark/internal/doc"
	"tickermark/internal/scan"
)

// Tree is the mutation surface the renderer needs.
type Tree interface {
	WrapSpan(leaf *html.Node, start, end int, token string) (*html.Node, error)
	Unwrap(marker *html.Node) error
	Markers() []*html.Node
}

// Renderer materialises occurrences as markers and keeps a registry of the
// markers it created.
type Renderer struct {
	tree    Tree
	markers []*html.Node
	log     *slog.Logger
}

// NewRenderer creates a Renderer mutating tree.
func NewRenderer(tree Tree, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{tree: tree, log: log}
}

// Render wraps every occurrence in set and returns the number of markers
// created. Occurrences that share a leaf are applied from the highest start
// offset down, so each wrap leaves the earlier offsets of that leaf intact.
// Occurrences whose span no longer applies are skipped.
func (r *Renderer) Render(set scan.DetectionSet) int {
	type item struct {
		occ  scan.Occurrence
		leaf int
	}
	leafOrder := make(map[*html.Node]int)
	var items []item
	for _, tok := range set.Tokens() {
		for _, occ := range set[tok] {
			idx, ok := leafOrder[occ.Leaf]
			if !ok {
				idx = len(leafOrder)
				leafOrder[occ.Leaf] = idx
			}
			items = append(items, item{occ: occ, leaf: idx})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].leaf != items[j].leaf {
			return items[i].leaf < items[j].leaf
		}
		return items[i].occ.Start > items[j].occ.Start
	})

	created, skipped := 0, 0
	for _, it := range items {
		m, err := r.tree.WrapSpan(it.occ.Leaf, it.occ.Start, it.occ.End, it.occ.Token)
		if err != nil {
			skipped++
			continue
		}
		r.markers = append(r.markers, m)
		created++
	}
	if skipped > 0 {
		r.log.Debug("skipped stale occurrences", "count", skipped)
	}
	return created
}

// Hover applies or clears the hover style on a marker. It reports false
// when n is not a marker.
func (r *Renderer) Hover(n *html.Node, in bool) bool {
	if !doc.IsMarker(n) {
		return false
	}
	doc.ToggleClass(n, doc.HoverClass, in)
	return true
}

// Unhighlight replaces every marker in the tree with its plain text and
// clears the registry. It returns the number of markers removed.
func (r *Renderer) Unhighlight() int {
	removed := 0
	for _, m := range r.tree.Markers() {
		if err := r.tree.Unwrap(m); err != nil {
			continue
		}
		removed++
	}
	r.markers = nil
	return removed
}

// Markers returns the markers created since the last Unhighlight.
func (r *Renderer) Markers() []*html.Node {
	out := make([]*html.Node, len(r.markers))
	copy(out, r.markers)
	return out
}
