// Package httpapi provides the HTTP API used by browser hosts and the CLI:
// one-shot annotation, settings, watchlist membership, alert requests and
// annotated news.
package httpapi

import (
	"tickermark/internal/domain"
	"tickermark/internal/news"
	"tickermark/internal/page"
)

// AnnotateRequest is the body of POST /api/annotate.
type AnnotateRequest struct {
	HTML        string `json:"html"`
	NoHighlight bool   `json:"noHighlight,omitempty"`
}

// AnnotateResponse is the result of POST /api/annotate.
type AnnotateResponse = page.Result

// WatchlistResponse is the JSON response for GET /api/watchlist.
type WatchlistResponse struct {
	Symbols []string `json:"symbols"`
}

// MembershipResponse is the JSON response for GET /api/watchlist/{symbol}.
type MembershipResponse = domain.Membership

// CreateAlertRequest is the body of POST /api/alerts.
type CreateAlertRequest struct {
	Symbol string `json:"symbol"`
}

// AlertsResponse is the JSON response for GET /api/alerts.
type AlertsResponse struct {
	Requests []domain.AlertRequest `json:"requests"`
}

// NewsResponse is the JSON response for GET /api/news/{symbol}.
type NewsResponse struct {
	Symbol   string           `json:"symbol"`
	Date     string           `json:"date"`
	Articles []news.Annotated `json:"articles"`
}

// NewsDatesResponse is the JSON response for GET /api/news.
type NewsDatesResponse struct {
	Dates []string `json:"dates"`
}
