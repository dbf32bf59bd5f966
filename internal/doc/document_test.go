package doc

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s, DefaultLayout())
	if err != nil {
		t.Fatalf("ParseString() error: %v", err)
	}
	return d
}

// firstText returns the first text node whose data contains sub.
func firstText(d *Document, sub string) *html.Node {
	for _, n := range d.FindAll(func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.Contains(n.Data, sub)
	}) {
		return n
	}
	return nil
}

func TestWrapSpan(t *testing.T) {
	d := mustParse(t, `<p>Buy AAPL now</p>`)
	leaf := firstText(d, "AAPL")

	marker, err := d.WrapSpan(leaf, 4, 8, "AAPL")
	if err != nil {
		t.Fatalf("WrapSpan() error: %v", err)
	}
	if !IsMarker(marker) {
		t.Fatal("WrapSpan() did not return a marker")
	}
	if got := TextContent(marker); got != "AAPL" {
		t.Errorf("marker text = %q, want %q", got, "AAPL")
	}
	if tok, _ := Attr(marker, TokenAttr); tok != "AAPL" {
		t.Errorf("marker %s = %q, want %q", TokenAttr, tok, "AAPL")
	}
	if leaf.Data != "Buy " {
		t.Errorf("leaf kept %q, want %q", leaf.Data, "Buy ")
	}
	if got := TextContent(marker.Parent); got != "Buy AAPL now" {
		t.Errorf("paragraph text = %q, want %q", got, "Buy AAPL now")
	}
	if !strings.Contains(d.HTML(), `<span class="tickermark-highlight" data-ticker="AAPL">AAPL</span>`) {
		t.Errorf("rendered html missing marker: %s", d.HTML())
	}
}

func TestWrapSpanInvalid(t *testing.T) {
	d := mustParse(t, `<p>Buy AAPL now</p>`)
	leaf := firstText(d, "AAPL")

	cases := []struct {
		name       string
		start, end int
		token      string
	}{
		{"out of range", 4, 99, "AAPL"},
		{"empty", 4, 4, ""},
		{"text mismatch", 0, 4, "AAPL"},
	}
	for _, tc := range cases {
		if _, err := d.WrapSpan(leaf, tc.start, tc.end, tc.token); !errors.Is(err, ErrRangeInvalid) {
			t.Errorf("%s: WrapSpan() error = %v, want ErrRangeInvalid", tc.name, err)
		}
	}

	detached := Text("AAPL")
	if _, err := d.WrapSpan(detached, 0, 4, "AAPL"); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("detached: WrapSpan() error = %v, want ErrRangeInvalid", err)
	}
}

func TestUnwrapMergesText(t *testing.T) {
	d := mustParse(t, `<p>Buy AAPL now</p>`)
	leaf := firstText(d, "AAPL")
	p := leaf.Parent

	marker, err := d.WrapSpan(leaf, 4, 8, "AAPL")
	if err != nil {
		t.Fatalf("WrapSpan() error: %v", err)
	}
	if err := d.Unwrap(marker); err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if p.FirstChild == nil || p.FirstChild != p.LastChild {
		t.Fatal("expected a single merged text node after Unwrap")
	}
	if got := p.FirstChild.Data; got != "Buy AAPL now" {
		t.Errorf("merged text = %q, want %q", got, "Buy AAPL now")
	}
	if len(d.Markers()) != 0 {
		t.Error("markers remain after Unwrap")
	}
}

func TestExcluded(t *testing.T) {
	d := mustParse(t, `<div>
<script>var AAPL = 1</script><code>MSFT</code>
<div contenteditable="true">GOOG</div>
<span class="tickermark-highlight" data-ticker="TSLA">TSLA</span>
<div id="tickermark-overlay">NFLX</div>
<div class="tickermark-toast">AMD</div>
<p>ok</p></div>`)

	var excluded []string
	Walk(d.Body(), func(n *html.Node) bool {
		if Excluded(n) {
			excluded = append(excluded, strings.TrimSpace(TextContent(n)))
			return false
		}
		return true
	})
	want := []string{"var AAPL = 1", "MSFT", "GOOG", "TSLA", "NFLX", "AMD"}
	if strings.Join(excluded, ",") != strings.Join(want, ",") {
		t.Errorf("excluded subtrees = %v, want %v", excluded, want)
	}
}

func TestPosition(t *testing.T) {
	d := mustParse(t, `<p>Buy AAPL</p><p>MSFT</p><p hidden>NVDA</p><p style="display: none">AMD</p>`)
	l := d.Layout()

	aapl := firstText(d, "AAPL")
	r, err := d.Position(aapl, 4, 8)
	if err != nil {
		t.Fatalf("Position(AAPL) error: %v", err)
	}
	if r.X != 4*l.CharWidth || r.Y != 0 || r.Width != 4*l.CharWidth || r.Height != l.LineHeight {
		t.Errorf("Position(AAPL) = %+v", r)
	}

	msft := firstText(d, "MSFT")
	r, err = d.Position(msft, 0, 4)
	if err != nil {
		t.Fatalf("Position(MSFT) error: %v", err)
	}
	if r.X != 0 || r.Y != l.LineHeight {
		t.Errorf("Position(MSFT) = %+v, want second line", r)
	}

	for _, sub := range []string{"NVDA", "AMD"} {
		n := firstText(d, sub)
		if _, err := d.Position(n, 0, len(sub)); !errors.Is(err, ErrRangeInvalid) {
			t.Errorf("Position(%s) error = %v, want ErrRangeInvalid for hidden content", sub, err)
		}
	}

	if _, err := d.Position(Text("GME"), 0, 3); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("Position(detached) error = %v, want ErrRangeInvalid", err)
	}
	if _, err := d.Position(msft, 2, 2); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("Position(zero-sized) error = %v, want ErrRangeInvalid", err)
	}
}

func TestPositionWraps(t *testing.T) {
	layout := Layout{CharWidth: 10, LineHeight: 20}
	layout.Viewport.Width = 100
	layout.Viewport.Height = 100
	d, err := ParseString(`<p>0123456789ABCD AAPL</p>`, layout)
	if err != nil {
		t.Fatalf("ParseString() error: %v", err)
	}
	leaf := firstText(d, "AAPL")
	r, err := d.Position(leaf, 15, 19)
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if r.X != 50 || r.Y != 20 {
		t.Errorf("Position() = %+v, want X=50 Y=20", r)
	}
}

func TestSubscribe(t *testing.T) {
	d := mustParse(t, `<div id="feed"></div>`)
	id, ch := d.Subscribe(8)

	nodes, err := d.AppendHTML(nil, `<p>new AAPL post</p>`)
	if err != nil {
		t.Fatalf("AppendHTML() error: %v", err)
	}
	d.SetAttr(nodes[0], "class", "post")

	m := <-ch
	if m.Kind != MutationChildList || m.Origin != OriginHost || len(m.Added) != 1 {
		t.Errorf("first mutation = %+v, want host childList with one added node", m)
	}
	m = <-ch
	if m.Kind != MutationAttributes || m.Attr != "class" {
		t.Errorf("second mutation = %+v, want class attribute change", m)
	}

	d.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	// Unsubscribing twice is a no-op.
	d.Unsubscribe(id)
}

func TestSubscribeFuncFiltersBeforeBuffering(t *testing.T) {
	d := mustParse(t, `<div id="feed"><p>GME</p></div>`)
	keep := func(m Mutation) bool { return m.Kind == MutationChildList && m.Origin == OriginHost }
	id, ch := d.SubscribeFunc(1, keep)
	defer d.Unsubscribe(id)

	// Far more rejected events than buffer slots.
	p := d.Body().FirstChild.FirstChild
	for i := 0; i < 100; i++ {
		d.SetAttr(p, "data-n", fmt.Sprint(i))
	}
	if _, err := d.AppendHTML(nil, `<p>NVDA up</p>`); err != nil {
		t.Fatalf("AppendHTML() error: %v", err)
	}

	select {
	case m := <-ch:
		if m.Kind != MutationChildList || len(m.Added) != 1 {
			t.Errorf("mutation = %+v, want host childList with one added node", m)
		}
	default:
		t.Fatal("host insertion was dropped")
	}
}

func TestClassHelpers(t *testing.T) {
	n := Element(0, "class", "a b")
	ToggleClass(n, "c", true)
	if !HasClass(n, "c") || !HasClass(n, "a") {
		t.Errorf("class = %v, want a, b, c", n.Attr)
	}
	ToggleClass(n, "a", false)
	if HasClass(n, "a") {
		t.Error("class a should be removed")
	}
	RemoveAttr(n, "class")
	if _, ok := Attr(n, "class"); ok {
		t.Error("class attribute should be removed")
	}
}
