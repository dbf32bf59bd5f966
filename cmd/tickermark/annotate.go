package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tickermark/internal/page"
)

var (
	annotateGlobs       []string
	annotateRoot        string
	annotateOut         string
	annotateNoHighlight bool
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [FILE...]",
	Short: "Annotate HTML files once and report detected tickers",
	Long: `annotate runs a single detection and highlight pass over each input.
Inputs are FILE arguments, "-" for stdin, and files matching --glob under
--root. With --out the annotated HTML is written under that directory,
keeping each file's path relative to --root; a summary line per input is
always printed as JSON.`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringArrayVar(&annotateGlobs, "glob", nil, "doublestar pattern relative to --root, e.g. '**/*.html' (repeatable)")
	annotateCmd.Flags().StringVar(&annotateRoot, "root", ".", "directory --glob patterns are matched in")
	annotateCmd.Flags().StringVar(&annotateOut, "out", "", "directory for annotated HTML (default: summaries only)")
	annotateCmd.Flags().BoolVar(&annotateNoHighlight, "no-highlight", false, "detect only, do not wrap markers")
}

// collectInputs resolves globs under root to slash-separated paths relative
// to root, deduplicated and sorted.
func collectInputs(root string, globs []string) ([]string, error) {
	seen := map[string]struct{}{}
	var matched []string
	fsys := os.DirFS(root)
	for _, pattern := range globs {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		ms, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		for _, m := range ms {
			m = filepath.ToSlash(filepath.Clean(m))
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			matched = append(matched, m)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

type annotateSummary struct {
	Input   string         `json:"input"`
	Output  string         `json:"output,omitempty"`
	Tokens  []string       `json:"tokens"`
	Counts  map[string]int `json:"counts"`
	Markers int            `json:"markers"`
	Error   string         `json:"error,omitempty"`
}

type annotateInput struct {
	name string // display name
	rel  string // path under --out, empty for stdin
	open func() (io.ReadCloser, error)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	var inputs []annotateInput
	for _, a := range args {
		if a == "-" {
			inputs = append(inputs, annotateInput{
				name: "-",
				open: func() (io.ReadCloser, error) { return io.NopCloser(cmd.InOrStdin()), nil },
			})
			continue
		}
		path := a
		inputs = append(inputs, annotateInput{
			name: path,
			rel:  filepath.Base(path),
			open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	matched, err := collectInputs(annotateRoot, annotateGlobs)
	if err != nil {
		return err
	}
	for _, rel := range matched {
		full := filepath.Join(annotateRoot, filepath.FromSlash(rel))
		inputs = append(inputs, annotateInput{
			name: full,
			rel:  rel,
			open: func() (io.ReadCloser, error) { return os.Open(full) },
		})
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs: pass FILE arguments or --glob")
	}

	opts := page.AnnotateOptions{
		Policy:      policyFor(cfg),
		Layout:      layoutFor(cfg),
		NoHighlight: annotateNoHighlight,
		Log:         log,
	}

	summaries := make([]annotateSummary, len(inputs))
	var failed int
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range inputs {
		g.Go(func() error {
			s := annotateOne(in, opts)
			if s.Error != "" {
				log.Warn("annotate failed", "input", in.name, "error", s.Error)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			summaries[i] = s
			return nil
		})
	}
	g.Wait()

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, s := range summaries {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(inputs))
	}
	return nil
}

func annotateOne(in annotateInput, opts page.AnnotateOptions) annotateSummary {
	s := annotateSummary{Input: in.name}
	rc, err := in.open()
	if err != nil {
		s.Error = err.Error()
		return s
	}
	defer rc.Close()

	res, err := page.Annotate(rc, opts)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Tokens, s.Counts, s.Markers = res.Tokens, res.Counts, res.Markers

	if annotateOut == "" {
		return s
	}
	rel := in.rel
	if rel == "" {
		rel = "stdin.html"
	}
	out := filepath.Join(annotateOut, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		s.Error = err.Error()
		return s
	}
	if err := os.WriteFile(out, []byte(res.HTML), 0o644); err != nil {
		s.Error = err.Error()
		return s
	}
	s.Output = out
	return s
}
