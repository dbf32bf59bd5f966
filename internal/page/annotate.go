package page

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tickermark/internal/detect"
	"tickermark/internal/doc"
	"tickermark/internal/highlight"
	"tickermark/internal/scan"
)

// AnnotateOptions configures a one-shot annotation.
type AnnotateOptions struct {
	Policy      *detect.Policy
	Layout      doc.Layout
	NoHighlight bool
	Log         *slog.Logger
}

// Result is the outcome of Annotate.
type Result struct {
	HTML    string         `json:"html"`
	Tokens  []string       `json:"tokens"`
	Counts  map[string]int `json:"counts"`
	Markers int            `json:"markers"`
}

// Annotate parses r, runs a single scan and highlight pass, and renders the
// annotated document. No loop, watcher or overlay is involved.
func Annotate(r io.Reader, opts AnnotateOptions) (Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	d, err := doc.Parse(r, opts.Layout)
	if err != nil {
		return Result{}, fmt.Errorf("parsing document: %w", err)
	}

	set := scan.NewScanner(detect.NewMatcher(opts.Policy), log).Scan(d)
	res := Result{
		Tokens: set.Tokens(),
		Counts: make(map[string]int, len(set)),
	}
	for tok, occ := range set {
		res.Counts[tok] = len(occ)
	}
	if !opts.NoHighlight {
		res.Markers = highlight.NewRenderer(d, log).Render(set)
	}

	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return Result{}, fmt.Errorf("rendering document: %w", err)
	}
	res.HTML = sb.String()
	return res, nil
}

// AnnotateString is Annotate over a string.
func AnnotateString(s string, opts AnnotateOptions) (Result, error) {
	return Annotate(strings.NewReader(s), opts)
}
