package news

import (
	"fmt"
	"html"
	"strings"

	"tickermark/internal/domain"
	"tickermark/internal/page"
)

// Annotated is an article rendered with ticker markers.
type Annotated struct {
	domain.Article
	HTML   string         `json:"html"`
	Tokens []string       `json:"tokens"`
	Counts map[string]int `json:"counts"`
}

// Document wraps an article as a standalone HTML document: the escaped
// headline, then the raw content, or the summary when there is none.
func Document(a domain.Article) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><title>")
	sb.WriteString(html.EscapeString(a.Headline))
	sb.WriteString("</title></head><body><article><h1>")
	sb.WriteString(html.EscapeString(a.Headline))
	sb.WriteString("</h1>")
	switch {
	case a.Content != "":
		sb.WriteString(a.Content)
	case a.Summary != "":
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(a.Summary))
		sb.WriteString("</p>")
	}
	sb.WriteString("</article></body></html>")
	return sb.String()
}

// Annotate runs a one-shot annotation over every article.
func Annotate(articles []domain.Article, opts page.AnnotateOptions) ([]Annotated, error) {
	out := make([]Annotated, 0, len(articles))
	for _, a := range articles {
		res, err := page.AnnotateString(Document(a), opts)
		if err != nil {
			return nil, fmt.Errorf("annotating %s/%s: %w", a.Source, a.ID, err)
		}
		out = append(out, Annotated{
			Article: a,
			HTML:    res.HTML,
			Tokens:  res.Tokens,
			Counts:  res.Counts,
		})
	}
	return out, nil
}

// FilterSymbol keeps articles tagged with symbol or mentioning it.
func FilterSymbol(articles []Annotated, symbol string) []Annotated {
	symbol = strings.ToUpper(symbol)
	var out []Annotated
	for _, a := range articles {
		if a.Counts[symbol] > 0 || containsString(a.Symbols, symbol) {
			out = append(out, a)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
