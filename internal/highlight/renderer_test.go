package highlight

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"tickermark/internal/doc"
	"tickermark/internal/scan"
)

func setup(t *testing.T, s string) (*doc.Document, *scan.Scanner, *Renderer) {
	t.Helper()
	d, err := doc.ParseString(s, doc.DefaultLayout())
	if err != nil {
		t.Fatalf("ParseString() error: %v", err)
	}
	return d, scan.NewScanner(nil, nil), NewRenderer(d, nil)
}

func markerTokens(d *doc.Document) []string {
	var out []string
	for _, m := range d.Markers() {
		tok, _ := doc.Attr(m, doc.TokenAttr)
		out = append(out, tok)
	}
	return out
}

func TestRenderScenario(t *testing.T) {
	d, s, r := setup(t, `<p>AAPL rose and MSFT fell, but THE market was flat.</p>`)

	if n := r.Render(s.Scan(d)); n != 2 {
		t.Fatalf("Render() = %d, want 2", n)
	}
	if got := strings.Join(markerTokens(d), ","); got != "AAPL,MSFT" {
		t.Errorf("markers = %s, want AAPL,MSFT", got)
	}
	for _, m := range d.Markers() {
		tok, _ := doc.Attr(m, doc.TokenAttr)
		if doc.TextContent(m) != tok {
			t.Errorf("marker text %q != token %q", doc.TextContent(m), tok)
		}
	}
	p := d.Markers()[0].Parent
	if got := doc.TextContent(p); got != "AAPL rose and MSFT fell, but THE market was flat." {
		t.Errorf("paragraph text changed: %q", got)
	}
}

func TestRenderIdempotent(t *testing.T) {
	d, s, r := setup(t, `<div><p>NVDA, AMD and INTC.</p><p>NVDA again</p></div>`)

	first := r.Render(s.Scan(d))
	html1 := d.HTML()
	second := r.Render(s.Scan(d))

	if first != 4 {
		t.Errorf("first Render() = %d, want 4", first)
	}
	if second != 0 {
		t.Errorf("second Render() = %d, want 0", second)
	}
	if html2 := d.HTML(); html2 != html1 {
		t.Errorf("second pass changed the tree:\n%s\n%s", html1, html2)
	}
	if len(d.Markers()) != 4 {
		t.Errorf("len(Markers()) = %d, want 4", len(d.Markers()))
	}
}

func TestRenderSkipsStaleOccurrences(t *testing.T) {
	d, s, r := setup(t, `<p>Buy GME now</p>`)
	set := s.Scan(d)

	// A duplicated, overlapping occurrence simulates a stale set.
	occ := set["GME"][0]
	set["GME"] = append(set["GME"], occ)

	if n := r.Render(set); n != 1 {
		t.Errorf("Render() = %d, want 1", n)
	}
	if got := doc.TextContent(d.Body()); got != "Buy GME now" {
		t.Errorf("body text = %q, want %q", got, "Buy GME now")
	}
}

func TestRenderSkipsDetachedLeaf(t *testing.T) {
	d, s, r := setup(t, `<p>Buy GME now</p>`)
	set := s.Scan(d)

	leaf := set["GME"][0].Leaf
	leaf.Parent.RemoveChild(leaf)

	if n := r.Render(set); n != 0 {
		t.Errorf("Render() = %d, want 0 for detached leaf", n)
	}
}

func TestHover(t *testing.T) {
	d, s, r := setup(t, `<p>PLTR</p>`)
	r.Render(s.Scan(d))
	m := d.Markers()[0]

	if !r.Hover(m, true) || !doc.HasClass(m, doc.HoverClass) {
		t.Error("Hover(in) should add the hover class")
	}
	if !r.Hover(m, false) || doc.HasClass(m, doc.HoverClass) {
		t.Error("Hover(out) should remove the hover class")
	}
	if !doc.HasClass(m, doc.MarkerClass) {
		t.Error("hover toggles must keep the marker class")
	}
	if r.Hover(d.Body(), true) {
		t.Error("Hover on a non-marker should report false")
	}
}

func TestUnhighlight(t *testing.T) {
	src := `<p>AAPL rose and MSFT fell.</p><p>Then <b>TSLA</b> too.</p>`
	d, s, r := setup(t, src)
	original := doc.TextContent(d.Body())

	r.Render(s.Scan(d))
	if len(r.Markers()) != 3 {
		t.Fatalf("len(Markers()) = %d, want 3", len(r.Markers()))
	}

	if n := r.Unhighlight(); n != 3 {
		t.Errorf("Unhighlight() = %d, want 3", n)
	}
	if len(d.Markers()) != 0 || len(r.Markers()) != 0 {
		t.Error("markers remain after Unhighlight")
	}
	if got := doc.TextContent(d.Body()); got != original {
		t.Errorf("text after Unhighlight = %q, want %q", got, original)
	}

	// Each paragraph is back to a single text run.
	for _, p := range d.FindAll(func(n *html.Node) bool { return n.Data == "p" }) {
		if p.FirstChild.Type != html.TextNode {
			t.Errorf("paragraph starts with %v, want text", p.FirstChild.Type)
		}
	}
}
