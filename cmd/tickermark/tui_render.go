package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tickermark/internal/doc"
)

var (
	markerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("75"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(0, 1)
	symbolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	toastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
)

// renderText flattens the body of d into terminal lines. Markers are
// styled, the one for selected in reverse; the overlay and toast are left
// to the footer.
func renderText(d *doc.Document, selected string) string {
	var sb strings.Builder
	atLineStart := true
	newline := func() {
		if !atLineStart {
			sb.WriteByte('\n')
			atLineStart = true
		}
	}
	write := func(s string) {
		if s == "" {
			return
		}
		sb.WriteString(s)
		atLineStart = false
	}

	var visit func(n *html.Node, pre bool)
	visit = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				write(n.Data)
				return
			}
			write(collapseSpace(n.Data, atLineStart))
			return
		case html.ElementNode:
			if doc.NonRendered(n) || doc.IsOverlay(n) || doc.IsToast(n) {
				return
			}
			if doc.IsMarker(n) {
				tok, _ := doc.Attr(n, doc.TokenAttr)
				style := markerStyle
				if tok == selected {
					style = selectedStyle
				}
				write(style.Render(doc.TextContent(n)))
				return
			}
			if n.DataAtom == atom.Br {
				sb.WriteByte('\n')
				atLineStart = true
				return
			}
			pre = pre || n.DataAtom == atom.Pre
			if doc.IsBlock(n) {
				newline()
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c, pre)
			}
			if doc.IsBlock(n) {
				newline()
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c, pre)
		}
	}
	if body := d.Body(); body != nil {
		visit(body, false)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// collapseSpace folds whitespace runs to one space, dropping a leading one
// at the start of a line.
func collapseSpace(s string, lineStart bool) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if lineStart || s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if !lineStart && isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
