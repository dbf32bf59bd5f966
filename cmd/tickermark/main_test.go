package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tickermark/internal/doc"
	"tickermark/internal/highlight"
	"tickermark/internal/page"
	"tickermark/internal/scan"
)

func TestCollectInputs(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"a.html", "sub/b.html", "sub/deep/c.html", "notes.txt"} {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("<p>x</p>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := collectInputs(root, []string{"**/*.html", "a.html", " "})
	if err != nil {
		t.Fatalf("collectInputs: %v", err)
	}
	want := "a.html,sub/b.html,sub/deep/c.html"
	if strings.Join(got, ",") != want {
		t.Errorf("collectInputs = %v, want %s", got, want)
	}

	if _, err := collectInputs(root, []string{"[unclosed"}); err == nil {
		t.Error("collectInputs should reject a malformed pattern")
	}
}

func TestAnnotateOne(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	if err := os.WriteFile(in, []byte("<p>Long COIN, short HOOD.</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	annotateOut = filepath.Join(dir, "out")
	t.Cleanup(func() { annotateOut = "" })

	s := annotateOne(annotateInput{
		name: in,
		rel:  "nested/in.html",
		open: func() (io.ReadCloser, error) { return os.Open(in) },
	}, page.AnnotateOptions{})
	if s.Error != "" {
		t.Fatalf("annotateOne error: %s", s.Error)
	}
	if s.Markers != 2 || s.Counts["COIN"] != 1 || s.Counts["HOOD"] != 1 {
		t.Errorf("summary = %+v, want COIN and HOOD markers", s)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out", "nested", "in.html"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), `data-ticker="HOOD"`) {
		t.Errorf("output missing HOOD marker: %s", data)
	}
}

func TestRenderText(t *testing.T) {
	d, err := doc.ParseString(`<html><head><title>AAPL</title></head><body>
<h1>Movers</h1>
<p>Shares of   TSLA rose<br>and NVDA fell.</p>
<pre>  keep   spacing</pre>
<script>var MSFT = 1;</script>
</body></html>`, doc.DefaultLayout())
	if err != nil {
		t.Fatal(err)
	}
	set := scan.NewScanner(nil, nil).Scan(d)
	highlight.NewRenderer(d, nil).Render(set)

	got := renderText(d, "NVDA")
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("renderText = %d lines, want 4:\n%s", len(lines), got)
	}
	if lines[0] != "Movers" {
		t.Errorf("line 0 = %q, want %q", lines[0], "Movers")
	}
	if !strings.Contains(lines[1], "Shares of ") || !strings.Contains(lines[1], "TSLA") {
		t.Errorf("line 1 = %q, want collapsed text with TSLA", lines[1])
	}
	if !strings.Contains(lines[2], "NVDA") || !strings.HasSuffix(lines[2], " fell.") {
		t.Errorf("line 2 = %q, want NVDA line after <br>", lines[2])
	}
	if lines[3] != "  keep   spacing" {
		t.Errorf("line 3 = %q, want preformatted text kept", lines[3])
	}
	if strings.Contains(got, "MSFT") || strings.Contains(got, "AAPL") {
		t.Errorf("non-rendered content leaked: %s", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := []struct {
		in        string
		lineStart bool
		want      string
	}{
		{"  a   b ", false, " a b "},
		{"  a   b ", true, "a b "},
		{"\n\t", false, " "},
		{"\n\t", true, ""},
		{"x", false, "x"},
	}
	for _, tt := range tests {
		if got := collapseSpace(tt.in, tt.lineStart); got != tt.want {
			t.Errorf("collapseSpace(%q, %t) = %q, want %q", tt.in, tt.lineStart, got, tt.want)
		}
	}
}

func TestTUIModelCycle(t *testing.T) {
	m := tuiModel{snap: page.Snapshot{Tokens: []string{"AMD", "INTC", "NVDA"}}}
	m.cycle(1)
	if m.selected != "AMD" {
		t.Errorf("first tab selected %q, want AMD", m.selected)
	}
	m.cycle(-1)
	if m.selected != "NVDA" {
		t.Errorf("shift+tab from AMD selected %q, want NVDA (wrap)", m.selected)
	}
	m.snap.Tokens = nil
	m.cycle(1)
	if m.selected != "" {
		t.Errorf("cycle with no tokens selected %q, want none", m.selected)
	}
}
