// Package overlay implements the per-symbol action panel: a three-phase
// state machine (closed, pending membership, known) driven by clicks, keys,
// and asynchronous watchlist results delivered back onto the page loop.
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tickermark/internal/doc"
	"tickermark/internal/domain"
)

const (
	DefaultToastTTL      = 3 * time.Second
	DefaultLookupTimeout = 10 * time.Second
)

// WatchlistClient answers membership queries and mutates the watchlist.
type WatchlistClient interface {
	IsInWatchlist(ctx context.Context, symbol string) (domain.Membership, error)
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, id string) error
}

// AlertRequester dispatches alert-creation requests.
type AlertRequester interface {
	RequestAlertCreation(ctx context.Context, symbol string) error
}

// Phase is the overlay lifecycle stage.
type Phase int

const (
	PhaseClosed Phase = iota
	PhasePending
	PhaseKnown
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseKnown:
		return "known"
	default:
		return "closed"
	}
}

// State is a snapshot of the controller.
type State struct {
	Phase      Phase
	Token      string
	Membership domain.Membership
}

// Options tunes a Controller. Zero values take defaults.
type Options struct {
	Viewport      domain.Size
	ToastTTL      time.Duration
	LookupTimeout time.Duration
}

// Controller owns at most one overlay per document. All methods must run on
// the page loop; post schedules continuations there.
type Controller struct {
	doc       *doc.Document
	watchlist WatchlistClient
	alerts    AlertRequester
	post      func(func())
	opts      Options
	log       *slog.Logger

	phase      Phase
	token      string
	membership domain.Membership
	panel      *panel
	seq        uint64

	toast    *html.Node
	toastSeq uint64
}

// NewController creates a closed controller.
func NewController(d *doc.Document, wl WatchlistClient, alerts AlertRequester, post func(func()), opts Options, log *slog.Logger) *Controller {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = d.Layout().Viewport
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = DefaultToastTTL
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		doc:       d,
		watchlist: wl,
		alerts:    alerts,
		post:      post,
		opts:      opts,
		log:       log,
	}
}

// State returns the current phase, token and membership.
func (c *Controller) State() State {
	return State{Phase: c.phase, Token: c.token, Membership: c.membership}
}

// Panel returns the attached overlay element, or nil when closed.
func (c *Controller) Panel() *html.Node {
	if c.panel == nil {
		return nil
	}
	return c.panel.root
}

// Toast returns the text of the visible toast, or "".
func (c *Controller) Toast() string {
	if c.toast == nil {
		return ""
	}
	return doc.TextContent(c.toast)
}

// HandleClick routes a classified click at pointer position at.
func (c *Controller) HandleClick(t Target, at domain.Point) {
	switch t.Kind {
	case TargetMarker:
		if t.Token != "" {
			c.Open(t.Token, at)
		}
	case TargetOverlay:
		if c.phase == PhaseClosed || t.Node == nil || !c.owns(t.Node) {
			return
		}
		switch t.Action {
		case ActionClose:
			c.Close()
		case ActionAlert:
			c.requestAlert()
		case ActionWatchlist:
			c.toggleWatchlist()
		}
	default:
		c.Close()
	}
}

// HandleKey closes the overlay on Escape.
func (c *Controller) HandleKey(key string) {
	if key == "Escape" {
		c.Close()
	}
}

// Open replaces any existing overlay with one for token positioned near at,
// and starts the membership lookup.
func (c *Controller) Open(token string, at domain.Point) {
	c.Close()

	c.seq++
	seq := c.seq
	pos := Place(at, domain.Size{Width: PanelWidth, Height: PanelHeight}, c.opts.Viewport)
	c.panel = buildPanel(token, pos)
	c.doc.Attach(c.panel.root)
	c.phase = PhasePending
	c.token = token
	c.membership = domain.Membership{Symbol: token}
	c.log.Debug("overlay opened", "symbol", token, "x", pos.X, "y", pos.Y)

	if c.watchlist == nil {
		c.applyMembership(seq, token, domain.Membership{Symbol: token}, nil)
		return
	}
	wl, timeout := c.watchlist, c.opts.LookupTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		m, err := wl.IsInWatchlist(ctx, token)
		c.post(func() { c.applyMembership(seq, token, m, err) })
	}()
}

// Close removes the overlay. Closing a closed controller is a no-op.
func (c *Controller) Close() {
	if c.phase == PhaseClosed {
		return
	}
	c.doc.Detach(c.panel.root)
	c.log.Debug("overlay closed", "symbol", c.token)
	c.panel = nil
	c.phase = PhaseClosed
	c.token = ""
	c.membership = domain.Membership{}
}

// Shutdown closes the overlay and removes any toast.
func (c *Controller) Shutdown() {
	c.Close()
	c.toastSeq++
	if c.toast != nil {
		c.doc.Detach(c.toast)
		c.toast = nil
	}
}

// ShowToast displays msg, replacing any visible toast, and removes it after
// the configured TTL.
func (c *Controller) ShowToast(msg string) {
	if c.toast != nil {
		c.doc.Detach(c.toast)
	}
	c.toast = doc.Element(atom.Div, "class", doc.ToastClass, "role", "status")
	c.toast.AppendChild(doc.Text(msg))
	c.doc.Attach(c.toast)

	c.toastSeq++
	seq := c.toastSeq
	time.AfterFunc(c.opts.ToastTTL, func() {
		c.post(func() {
			if c.toastSeq != seq || c.toast == nil {
				return
			}
			c.doc.Detach(c.toast)
			c.toast = nil
		})
	})
}

func (c *Controller) applyMembership(seq uint64, token string, m domain.Membership, err error) {
	if c.phase != PhasePending || c.seq != seq || c.token != token {
		c.log.Debug("discarding stale membership result", "symbol", token)
		return
	}
	if err != nil {
		c.log.Warn("watchlist lookup failed", "symbol", token, "error", err)
		m = domain.Membership{Symbol: token}
	}
	m.Symbol = token
	c.membership = m
	c.phase = PhaseKnown
	c.panel.setMembership(m)
}

func (c *Controller) requestAlert() {
	token := c.token
	c.Close()
	if c.alerts == nil {
		c.ShowToast(fmt.Sprintf("Alerts are unavailable for %s", token))
		return
	}
	alerts, timeout := c.alerts, c.opts.LookupTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := alerts.RequestAlertCreation(ctx, token); err != nil {
			c.log.Warn("alert request failed", "symbol", token, "error", err)
			c.post(func() { c.ShowToast(fmt.Sprintf("Could not request alert for %s: %v", token, err)) })
			return
		}
		c.log.Info("alert requested", "symbol", token)
	}()
}

func (c *Controller) toggleWatchlist() {
	if c.phase != PhaseKnown {
		// The control is disabled until membership is known.
		return
	}
	m, token := c.membership, c.token
	c.Close()
	if c.watchlist == nil {
		c.ShowToast("Watchlist is unavailable")
		return
	}

	wl, timeout := c.watchlist, c.opts.LookupTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var err error
		verb := "add"
		if m.Member {
			verb = "remove"
			id := m.EntryID
			if id == "" {
				id = token
			}
			err = wl.Remove(ctx, id)
		} else {
			err = wl.Add(ctx, token)
		}
		if err != nil {
			c.log.Warn("watchlist update failed", "symbol", token, "op", verb, "error", err)
			c.post(func() { c.ShowToast(fmt.Sprintf("Could not %s %s: %v", verb, token, err)) })
			return
		}
		c.log.Info("watchlist updated", "symbol", token, "op", verb)
	}()
}

func (c *Controller) owns(n *html.Node) bool {
	return c.panel != nil && doc.ClosestAncestor(n, func(x *html.Node) bool { return x == c.panel.root }) != nil
}
