// Package scan walks a content tree and builds the Detection Set: every
// ticker occurrence in the tree's text leaves, keyed by token.
package scan

import (
	"log/slog"
	"sort"

	"golang.org/x/net/html"

	"tickermark/internal/detect"
	"tickermark/internal/doc"
	"tickermark/internal/domain"
)

// Occurrence is one matched span in a text leaf at scan time. Leaf is only
// valid until a marker splits it.
type Occurrence struct {
	Token string
	Leaf  *html.Node
	Start int
	End   int
	Rect  domain.Rect
}

// DetectionSet maps each token to its occurrences in first-seen order.
type DetectionSet map[string][]Occurrence

// Tokens returns the set's tokens sorted alphabetically.
func (s DetectionSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Total returns the number of occurrences across all tokens.
func (s DetectionSet) Total() int {
	n := 0
	for _, occs := range s {
		n += len(occs)
	}
	return n
}

// Tree is the capability surface the scanner reads.
type Tree interface {
	Root() *html.Node
	Position(leaf *html.Node, start, end int) (domain.Rect, error)
}

// Scanner produces a fresh DetectionSet per pass. It never mutates the tree.
type Scanner struct {
	matcher *detect.Matcher
	log     *slog.Logger
}

// NewScanner creates a Scanner using matcher for leaf text.
func NewScanner(matcher *detect.Matcher, log *slog.Logger) *Scanner {
	if matcher == nil {
		matcher = detect.NewMatcher(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{matcher: matcher, log: log}
}

// Scan walks tree in pre-order, skipping excluded subtrees, and returns
// every surviving occurrence. Occurrences whose position cannot be computed
// are dropped individually.
func (s *Scanner) Scan(tree Tree) DetectionSet {
	set := make(DetectionSet)
	dropped := 0

	doc.Walk(tree.Root(), func(n *html.Node) bool {
		switch n.Type {
		case html.ElementNode:
			return !doc.Excluded(n)
		case html.TextNode:
			for c := range s.matcher.Matches(n.Data) {
				rect, err := tree.Position(n, c.Start, c.End)
				if err != nil {
					dropped++
					continue
				}
				set[c.Token] = append(set[c.Token], Occurrence{
					Token: c.Token,
					Leaf:  n,
					Start: c.Start,
					End:   c.End,
					Rect:  rect,
				})
			}
			return false
		case html.CommentNode, html.DoctypeNode:
			return false
		}
		return true
	})

	if dropped > 0 {
		s.log.Debug("dropped occurrences without position", "count", dropped)
	}
	return set
}
