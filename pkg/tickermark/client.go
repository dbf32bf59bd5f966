// Package tickermark is a Go client for the tickermark-server API. A Client
// satisfies the settings, watchlist and alert collaborators a page host
// needs, so a remote server can back a local page.
package tickermark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tickermark/internal/domain"
	"tickermark/internal/page"
)

// Client provides a Go SDK for interacting with the tickermark-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tickermark API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tickermark api: %d %s", e.Status, e.Message)
}

// GetSettings retrieves the user toggles.
func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	var s domain.Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s)
	return s, err
}

// SaveSettings replaces the user toggles.
func (c *Client) SaveSettings(ctx context.Context, s domain.Settings) error {
	return c.do(ctx, http.MethodPut, "/api/settings", s, nil)
}

// Watchlist lists the watchlist symbols.
func (c *Client) Watchlist(ctx context.Context) ([]string, error) {
	var resp struct {
		Symbols []string `json:"symbols"`
	}
	err := c.do(ctx, http.MethodGet, "/api/watchlist", nil, &resp)
	return resp.Symbols, err
}

// IsInWatchlist reports whether symbol is on the watchlist.
func (c *Client) IsInWatchlist(ctx context.Context, symbol string) (domain.Membership, error) {
	var m domain.Membership
	err := c.do(ctx, http.MethodGet, "/api/watchlist/"+url.PathEscape(symbol), nil, &m)
	return m, err
}

// Add puts symbol on the watchlist.
func (c *Client) Add(ctx context.Context, symbol string) error {
	return c.do(ctx, http.MethodPut, "/api/watchlist/"+url.PathEscape(symbol), nil, nil)
}

// Remove deletes the watchlist entry id.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(id), nil, nil)
}

// RequestAlertCreation asks the server to start alert configuration for
// symbol.
func (c *Client) RequestAlertCreation(ctx context.Context, symbol string) error {
	return c.do(ctx, http.MethodPost, "/api/alerts", map[string]string{"symbol": symbol}, nil)
}

// AlertRequests lists alert requests with status, or all when empty.
func (c *Client) AlertRequests(ctx context.Context, status domain.AlertRequestStatus) ([]domain.AlertRequest, error) {
	path := "/api/alerts"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var resp struct {
		Requests []domain.AlertRequest `json:"requests"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Requests, err
}

// Annotate runs a one-shot annotation of html on the server.
func (c *Client) Annotate(ctx context.Context, html string, noHighlight bool) (page.Result, error) {
	var res page.Result
	body := map[string]any{"html": html, "noHighlight": noHighlight}
	err := c.do(ctx, http.MethodPost, "/api/annotate", body, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
