package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"tickermark/internal/alerts"
	"tickermark/internal/doc"
	"tickermark/internal/overlay"
	"tickermark/internal/page"
	"tickermark/internal/store"
	"tickermark/internal/util"
	"tickermark/pkg/tickermark"
)

var tuiRemote string

var tuiCmd = &cobra.Command{
	Use:   "tui FILE",
	Short: "Browse an annotated HTML file in the terminal",
	Long: `tui loads FILE as a live page: tickers are detected and highlighted,
the file is re-read into the page with r, and markers open the action
overlay.

  tab/shift+tab  select marker     enter  open overlay
  a  create alert   w  toggle watchlist   x/esc  close overlay
  r  reload file    q  quit`,
	Args: cobra.ExactArgs(1),
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiRemote, "remote", "", "use a tickermark server (e.g. http://127.0.0.1:8787) for settings, watchlist and alerts")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The terminal belongs to the UI; log to a file.
	logPath := fmt.Sprintf("/tmp/tickermark-tui-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	layout := layoutFor(cfg)
	d, err := doc.Parse(f, layout)
	f.Close()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts := page.Options{
		Policy:   policyFor(cfg),
		Debounce: cfg.Detector.Debounce(),
		Overlay:  overlayOptions(cfg),
		Log:      logger,
	}
	if tuiRemote != "" {
		client := tickermark.NewClient(tuiRemote)
		opts.Settings, opts.Watchlist, opts.Alerts = client, client, client
		logger.Info("using remote collaborators", "url", tuiRemote)
	} else {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite: %w", err)
		}
		defer db.Close()
		opts.Settings = db
		opts.Watchlist = openWatchlist(ctx, cfg, logger)
		opts.Alerts = alerts.NewRequests(db, logger)
	}

	p := page.New(d, opts)
	go func() {
		if err := p.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("page loop stopped", "error", err)
		}
	}()
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting page: %w", err)
	}

	prog := tea.NewProgram(newTUIModel(ctx, p, path, logger), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = prog.Run()

	teardownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if terr := p.Teardown(teardownCtx); terr != nil {
		logger.Warn("teardown", "error", terr)
	}
	return err
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type tuiTickMsg time.Time

type tuiRefreshMsg struct {
	snap  page.Snapshot
	body  string
	panel string // toggle label of the attached overlay
	err   error
}

type tuiReloadMsg struct{ err error }

func tuiTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

type tuiModel struct {
	ctx  context.Context
	page *page.Page
	path string
	log  *slog.Logger

	viewport      viewport.Model
	ready         bool
	width, height int

	snap     page.Snapshot
	body     string
	panel    string
	selected string
	status   string
}

func newTUIModel(ctx context.Context, p *page.Page, path string, log *slog.Logger) tuiModel {
	return tuiModel{ctx: ctx, page: p, path: path, log: log}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tuiTick(), m.refresh())
}

// refresh reads the page state on its loop.
func (m tuiModel) refresh() tea.Cmd {
	p, ctx, selected := m.page, m.ctx, m.selected
	return func() tea.Msg {
		var msg tuiRefreshMsg
		err := p.Do(ctx, func() {
			d := p.Document()
			msg.body = renderText(d, selected)
			if panels := d.FindAll(doc.IsOverlay); len(panels) > 0 {
				msg.panel = overlay.ToggleLabel(panels[0])
			}
		})
		if err != nil {
			return tuiRefreshMsg{err: err}
		}
		msg.snap, msg.err = p.Snapshot(ctx)
		return msg
	}
}

// reload re-reads the file and replaces the body content as a host change,
// which the page's watcher picks up like any other DOM update.
func (m tuiModel) reload() tea.Cmd {
	p, ctx, path := m.page, m.ctx, m.path
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return tuiReloadMsg{err: err}
		}
		fresh, err := doc.ParseString(string(data), doc.DefaultLayout())
		if err != nil {
			return tuiReloadMsg{err: err}
		}
		var inner strings.Builder
		for c := fresh.Body().FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&inner, c); err != nil {
				return tuiReloadMsg{err: err}
			}
		}
		err = p.Mutate(ctx, func(d *doc.Document) error {
			body := d.Body()
			for c := body.FirstChild; c != nil; {
				next := c.NextSibling
				if !doc.IsOverlay(c) && !doc.IsToast(c) {
					d.RemoveChild(body, c)
				}
				c = next
			}
			_, err := d.AppendHTML(body, inner.String())
			return err
		})
		return tuiReloadMsg{err: err}
	}
}

func (m *tuiModel) cycle(delta int) {
	toks := m.snap.Tokens
	if len(toks) == 0 {
		m.selected = ""
		return
	}
	cur := -1
	for i, t := range toks {
		if t == m.selected {
			cur = i
			break
		}
	}
	switch {
	case cur < 0 && delta > 0:
		cur = 0
	case cur < 0:
		cur = len(toks) - 1
	default:
		cur = (cur + delta + len(toks)) % len(toks)
	}
	m.selected = toks[cur]
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.cycle(1)
			return m, m.refresh()
		case "shift+tab":
			m.cycle(-1)
			return m, m.refresh()
		case "enter":
			if m.selected != "" {
				m.page.ClickMarker(m.selected)
			}
			return m, m.refresh()
		case "esc":
			m.page.KeyDown("Escape")
			return m, m.refresh()
		case "a":
			m.page.ClickAction(overlay.ActionAlert)
			return m, m.refresh()
		case "w":
			m.page.ClickAction(overlay.ActionWatchlist)
			return m, m.refresh()
		case "x":
			m.page.ClickAction(overlay.ActionClose)
			return m, m.refresh()
		case "r":
			m.status = "reloading " + m.path
			return m, m.reload()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-2-m.footerHeight(), 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
			m.viewport.SetContent(m.body)
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		return m, nil

	case tuiTickMsg:
		return m, tea.Batch(tuiTick(), m.refresh())

	case tuiRefreshMsg:
		if msg.err != nil {
			if m.ctx.Err() != nil {
				return m, tea.Quit
			}
			m.log.Warn("refreshing page state", "error", msg.err)
			return m, nil
		}
		m.snap, m.body, m.panel = msg.snap, msg.body, msg.panel
		if m.ready {
			m.viewport.Height = max(m.height-2-m.footerHeight(), 1)
			m.viewport.SetContent(m.body)
		}
		return m, nil

	case tuiReloadMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
			m.log.Warn("reloading file", "path", m.path, "error", msg.err)
		} else {
			m.status = "reloaded " + m.path
		}
		return m, m.refresh()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m tuiModel) footerHeight() int {
	if m.snap.Overlay.Phase == overlay.PhaseClosed {
		return 1
	}
	return 6
}

func (m tuiModel) View() string {
	if !m.ready {
		return "loading..."
	}

	s := m.snap
	header := headerStyle.Width(m.width).Render(fmt.Sprintf(" %s  passes %d  tickers %d  markers %d  auto-detect %t  highlight %t",
		m.path, s.Passes, len(s.Tokens), s.Markers, s.Settings.AutoDetectEnabled, s.Settings.HighlightEnabled))

	var footer strings.Builder
	if s.Overlay.Phase != overlay.PhaseClosed {
		label := m.panel
		if label == "" {
			label = overlay.LabelPending
		}
		footer.WriteString(panelStyle.Render(fmt.Sprintf("%s\n[a] %s\n[w] %s\n[x] close",
			symbolStyle.Render(s.Overlay.Token), overlay.LabelAlert, label)))
		footer.WriteByte('\n')
	}
	switch {
	case s.Toast != "":
		footer.WriteString(toastStyle.Render(" " + s.Toast + " "))
	case m.status != "":
		footer.WriteString(dimStyle.Render(m.status))
	default:
		sel := m.selected
		if sel == "" {
			sel = "none"
		}
		footer.WriteString(dimStyle.Render("selected " + sel + "  tab select  enter open  r reload  q quit"))
	}

	return header + "\n" + m.viewport.View() + "\n" + footer.String()
}
