package tickermark

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tickermark/internal/alerts"
	"tickermark/internal/domain"
	"tickermark/internal/httpapi"
	"tickermark/internal/store"
	"tickermark/internal/watchlist"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8787/")
	if c.baseURL != "http://localhost:8787" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func newServer(t *testing.T) *Client {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := httpapi.NewServer(httpapi.Options{
		Settings:  db,
		Watchlist: watchlist.NewMemory("QQQ"),
		Alerts:    alerts.NewRequests(db, log),
		Log:       log,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestClientAgainstServer(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	want := domain.Settings{AutoDetectEnabled: true, HighlightEnabled: false}
	if err := c.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err := c.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got != want {
		t.Errorf("GetSettings = %+v, want %+v", got, want)
	}

	if err := c.Add(ctx, "spy"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	m, err := c.IsInWatchlist(ctx, "SPY")
	if err != nil {
		t.Fatalf("IsInWatchlist: %v", err)
	}
	if !m.Member {
		t.Errorf("SPY membership = %+v, want member", m)
	}
	if err := c.Remove(ctx, m.EntryID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	symbols, err := c.Watchlist(ctx)
	if err != nil {
		t.Fatalf("Watchlist: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "QQQ" {
		t.Errorf("Watchlist = %v, want [QQQ]", symbols)
	}

	if err := c.RequestAlertCreation(ctx, "IWM"); err != nil {
		t.Fatalf("RequestAlertCreation: %v", err)
	}
	reqs, err := c.AlertRequests(ctx, domain.AlertRequestPending)
	if err != nil {
		t.Fatalf("AlertRequests: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Symbol != "IWM" {
		t.Errorf("AlertRequests = %+v, want one IWM request", reqs)
	}

	res, err := c.Annotate(ctx, "<p>Buy ARKK now</p>", false)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if res.Counts["ARKK"] != 1 || res.Markers != 1 {
		t.Errorf("Annotate = %+v, want one ARKK marker", res)
	}
}

func TestClientAPIError(t *testing.T) {
	c := newServer(t)
	err := c.RequestAlertCreation(context.Background(), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}
}
