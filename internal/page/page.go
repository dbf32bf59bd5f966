// Package page wires the detection engine to one content document: the
// scanner, highlight renderer, mutation watcher and overlay controller all
// share a single event loop owned by the Page.
package page

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"tickermark/internal/detect"
	"tickermark/internal/doc"
	"tickermark/internal/domain"
	"tickermark/internal/highlight"
	"tickermark/internal/overlay"
	"tickermark/internal/scan"
	"tickermark/internal/watch"
)

// SettingsProvider supplies the user toggles.
type SettingsProvider interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

// Options configures a Page. Nil collaborators are allowed: missing settings
// mean defaults, a missing watchlist shows every symbol as a non-member.
type Options struct {
	Settings  SettingsProvider
	Watchlist overlay.WatchlistClient
	Alerts    overlay.AlertRequester
	Policy    *detect.Policy
	Debounce  time.Duration
	Overlay   overlay.Options
	Log       *slog.Logger
}

// Page is one annotated document and the engine attached to it.
type Page struct {
	loop     *Loop
	doc      *doc.Document
	scanner  *scan.Scanner
	renderer *highlight.Renderer
	watcher  *watch.Watcher
	overlay  *overlay.Controller
	provider SettingsProvider
	log      *slog.Logger

	// Loop-owned.
	settings   domain.Settings
	started    bool
	detections scan.DetectionSet
	passes     int
}

// Snapshot is a read-only view of the page state.
type Snapshot struct {
	Settings domain.Settings
	Passes   int
	Tokens   []string
	Counts   map[string]int
	Markers  int
	Overlay  overlay.State
	Toast    string
}

// New attaches an engine to d. Call Run on its own goroutine, then Start.
func New(d *doc.Document, opts Options) *Page {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	p := &Page{
		loop:     NewLoop(0),
		doc:      d,
		scanner:  scan.NewScanner(detect.NewMatcher(opts.Policy), log),
		renderer: highlight.NewRenderer(d, log),
		provider: opts.Settings,
		log:      log,
		settings: domain.DefaultSettings(),
	}
	post := func(fn func()) { p.loop.Post(fn) }
	p.watcher = watch.New(opts.Debounce, post, p.Process, log)
	p.overlay = overlay.NewController(d, opts.Watchlist, opts.Alerts, post, opts.Overlay, log)
	return p
}

// Document returns the page's content tree. Read or mutate it only from
// inside Do or Mutate.
func (p *Page) Document() *doc.Document { return p.doc }

// Run drives the page loop until ctx is cancelled.
func (p *Page) Run(ctx context.Context) error {
	err := p.loop.Run(ctx)
	p.watcher.Stop()
	return err
}

// Start reads the settings and, when auto-detect is enabled, runs the
// initial pass and starts watching for structural changes. A settings
// failure falls back to defaults.
func (p *Page) Start(ctx context.Context) error {
	settings := domain.DefaultSettings()
	if p.provider != nil {
		s, err := p.provider.GetSettings(ctx)
		if err != nil {
			p.log.Warn("settings unavailable, using defaults", "error", err)
		} else {
			settings = s
		}
	}
	return p.loop.Do(ctx, func() {
		if p.started {
			return
		}
		p.started = true
		p.settings = settings
		if !settings.AutoDetectEnabled {
			p.log.Info("auto-detect disabled")
			return
		}
		p.Process()
		p.watcher.Start(p.doc)
	})
}

// Process runs one scan and highlight pass. It must run on the loop.
func (p *Page) Process() {
	set := p.scanner.Scan(p.doc)
	p.detections = set
	p.passes++
	wrapped := 0
	if p.settings.HighlightEnabled {
		wrapped = p.renderer.Render(set)
	}
	p.log.Debug("scan pass complete", "pass", p.passes, "tokens", len(set), "occurrences", set.Total(), "wrapped", wrapped)
}

// Click classifies n and forwards it to the overlay controller.
func (p *Page) Click(n *html.Node, at domain.Point) bool {
	return p.loop.Post(func() { p.overlay.HandleClick(overlay.Classify(n), at) })
}

// ClickMarker clicks the first marker for token, positioned at its rect.
func (p *Page) ClickMarker(token string) bool {
	return p.loop.Post(func() {
		for _, m := range p.doc.Markers() {
			if tok, _ := doc.Attr(m, doc.TokenAttr); tok == token {
				at := domain.Point{}
				// Host content may have emptied or restructured the marker.
				if c := m.FirstChild; c != nil && c.Type == html.TextNode {
					if r, err := p.doc.Position(c, 0, len(c.Data)); err == nil {
						at = r.BottomLeft()
					}
				}
				p.overlay.HandleClick(overlay.Classify(m), at)
				return
			}
		}
	})
}

// ClickAction presses an overlay control.
func (p *Page) ClickAction(a overlay.Action) bool {
	return p.loop.Post(func() {
		root := p.overlay.Panel()
		if root == nil {
			return
		}
		var target *html.Node
		doc.Walk(root, func(n *html.Node) bool {
			if v, ok := doc.Attr(n, overlay.ActionAttr); ok && overlay.Action(v) == a {
				target = n
			}
			return target == nil
		})
		if target != nil {
			p.overlay.HandleClick(overlay.Classify(target), domain.Point{})
		}
	})
}

// Hover toggles the hover presentation of a marker.
func (p *Page) Hover(n *html.Node, in bool) bool {
	return p.loop.Post(func() { p.renderer.Hover(n, in) })
}

// KeyDown forwards a key press.
func (p *Page) KeyDown(key string) bool {
	return p.loop.Post(func() { p.overlay.HandleKey(key) })
}

// Mutate runs a host change against the document on the loop.
func (p *Page) Mutate(ctx context.Context, fn func(d *doc.Document) error) error {
	var err error
	if lerr := p.loop.Do(ctx, func() { err = fn(p.doc) }); lerr != nil {
		return lerr
	}
	return err
}

// Do runs fn on the loop and waits for it.
func (p *Page) Do(ctx context.Context, fn func()) error {
	return p.loop.Do(ctx, fn)
}

// Detections returns the set produced by the latest pass.
func (p *Page) Detections(ctx context.Context) (scan.DetectionSet, error) {
	var set scan.DetectionSet
	err := p.loop.Do(ctx, func() { set = p.detections })
	return set, err
}

// Snapshot captures the page state.
func (p *Page) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := p.loop.Do(ctx, func() {
		s = Snapshot{
			Settings: p.settings,
			Passes:   p.passes,
			Tokens:   p.detections.Tokens(),
			Counts:   make(map[string]int, len(p.detections)),
			Markers:  len(p.doc.Markers()),
			Overlay:  p.overlay.State(),
			Toast:    p.overlay.Toast(),
		}
		for tok, occ := range p.detections {
			s.Counts[tok] = len(occ)
		}
	})
	return s, err
}

// Teardown stops watching, closes the overlay and removes every marker.
func (p *Page) Teardown(ctx context.Context) error {
	return p.loop.Do(ctx, func() {
		p.watcher.Stop()
		p.overlay.Shutdown()
		n := p.renderer.Unhighlight()
		p.detections = nil
		p.log.Debug("page torn down", "unwrapped", n)
	})
}
