package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tickermark/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	ts := time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)
	p := ps.newsPath(ts)

	want := filepath.Join("/data", "us", "news", "2024-06-15.parquet")
	if p != want {
		t.Errorf("newsPath mismatch:\n  got  %s\n  want %s", p, want)
	}
	if !strings.Contains(p, "news") {
		t.Errorf("newsPath should contain 'news': %s", p)
	}
}

func TestParquetStoreWriteReadNews(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{
			ID:       "2",
			Time:     day.Add(15 * time.Hour),
			Source:   "alpaca",
			Symbols:  []string{"AAPL", "MSFT"},
			Headline: "AAPL and MSFT trade higher",
			Content:  "<p>AAPL rose and MSFT fell.</p>",
		},
		{
			ID:       "1",
			Time:     day.Add(9 * time.Hour),
			Source:   "alpaca",
			Symbols:  []string{"TSLA"},
			Headline: "TSLA deliveries",
		},
	}
	if err := ps.WriteNews(ctx, articles); err != nil {
		t.Fatalf("WriteNews: %v", err)
	}

	got, err := ps.ReadNews(ctx, day)
	if err != nil {
		t.Fatalf("ReadNews: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadNews returned %d articles, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("order = %s,%s, want 1,2", got[0].ID, got[1].ID)
	}
	if strings.Join(got[1].Symbols, ",") != "AAPL,MSFT" {
		t.Errorf("Symbols = %v, want [AAPL MSFT]", got[1].Symbols)
	}
	if got[1].Content != articles[0].Content {
		t.Errorf("Content = %q, want %q", got[1].Content, articles[0].Content)
	}
	if !got[0].Time.Equal(articles[1].Time) {
		t.Errorf("Time = %v, want %v", got[0].Time, articles[1].Time)
	}
}

func TestParquetStoreMergeNews(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)

	first := []domain.Article{{ID: "a", Time: ts, Source: "alpaca", Headline: "old"}}
	if err := ps.WriteNews(ctx, first); err != nil {
		t.Fatalf("WriteNews (first): %v", err)
	}
	second := []domain.Article{
		{ID: "a", Time: ts, Source: "alpaca", Headline: "updated"},
		{ID: "b", Time: ts.Add(time.Hour), Source: "alpaca", Headline: "new"},
	}
	if err := ps.WriteNews(ctx, second); err != nil {
		t.Fatalf("WriteNews (second): %v", err)
	}

	got, err := ps.ReadNews(ctx, ts)
	if err != nil {
		t.Fatalf("ReadNews: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadNews returned %d articles after merge, want 2", len(got))
	}
	if got[0].Headline != "updated" {
		t.Errorf("Headline = %q, want %q", got[0].Headline, "updated")
	}
}

func TestParquetStoreListNewsDates(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	dates, err := ps.ListNewsDates(ctx)
	if err != nil || len(dates) != 0 {
		t.Fatalf("ListNewsDates on empty dir = %v, %v", dates, err)
	}

	articles := []domain.Article{
		{ID: "1", Time: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), Source: "alpaca"},
		{ID: "2", Time: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC), Source: "alpaca"},
	}
	if err := ps.WriteNews(ctx, articles); err != nil {
		t.Fatalf("WriteNews: %v", err)
	}
	dates, err = ps.ListNewsDates(ctx)
	if err != nil {
		t.Fatalf("ListNewsDates: %v", err)
	}
	if strings.Join(dates, ",") != "2024-01-02,2024-01-03" {
		t.Errorf("ListNewsDates = %v, want [2024-01-02 2024-01-03]", dates)
	}

	missing, err := ps.ReadNews(ctx, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || missing != nil {
		t.Errorf("ReadNews(missing day) = %v, %v, want nil, nil", missing, err)
	}
}

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	t.Cleanup(func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	})
	return s
}

func TestSQLiteStoreOpen(t *testing.T) {
	s := openSQLite(t)
	if err := s.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreSettings(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	got, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got != domain.DefaultSettings() {
		t.Errorf("GetSettings on empty db = %+v, want defaults", got)
	}

	want := domain.Settings{AutoDetectEnabled: true, HighlightEnabled: false}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if got, _ := s.GetSettings(ctx); got != want {
		t.Errorf("GetSettings = %+v, want %+v", got, want)
	}

	want.AutoDetectEnabled = false
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings (update): %v", err)
	}
	if got, _ := s.GetSettings(ctx); got != want {
		t.Errorf("GetSettings after update = %+v, want %+v", got, want)
	}
}

func TestSQLiteStoreAlertRequests(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

	for i, sym := range []string{"TSLA", "NVDA"} {
		req := &domain.AlertRequest{
			ID:        sym + "-req",
			Symbol:    sym,
			Status:    domain.AlertRequestPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveAlertRequest(ctx, req); err != nil {
			t.Fatalf("SaveAlertRequest(%s): %v", sym, err)
		}
	}

	got, err := s.GetAlertRequest(ctx, "TSLA-req")
	if err != nil {
		t.Fatalf("GetAlertRequest: %v", err)
	}
	if got.Symbol != "TSLA" || !got.CreatedAt.Equal(base) {
		t.Errorf("GetAlertRequest = %+v", got)
	}
	if _, err := s.GetAlertRequest(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAlertRequest(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.UpdateAlertRequestStatus(ctx, "TSLA-req", domain.AlertRequestAcknowledged); err != nil {
		t.Fatalf("UpdateAlertRequestStatus: %v", err)
	}
	if err := s.UpdateAlertRequestStatus(ctx, "nope", domain.AlertRequestAcknowledged); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAlertRequestStatus(missing) error = %v, want ErrNotFound", err)
	}

	pending, err := s.ListAlertRequests(ctx, domain.AlertRequestPending)
	if err != nil {
		t.Fatalf("ListAlertRequests: %v", err)
	}
	if len(pending) != 1 || pending[0].Symbol != "NVDA" {
		t.Errorf("pending = %+v, want [NVDA]", pending)
	}
	all, _ := s.ListAlertRequests(ctx, "")
	if len(all) != 2 || all[0].Symbol != "TSLA" {
		t.Errorf("all = %+v, want TSLA then NVDA", all)
	}
}
