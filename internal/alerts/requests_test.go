package alerts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"tickermark/internal/domain"
	"tickermark/internal/store"
)

func newRequests(t *testing.T) *Requests {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewRequests(st, nil)
}

func TestRequestAndAcknowledge(t *testing.T) {
	r := newRequests(t)
	ctx := context.Background()

	id, ch := r.Subscribe(4)
	defer r.Unsubscribe(id)

	req, err := r.Create(ctx, " tsla ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Symbol != "TSLA" {
		t.Errorf("Symbol = %q, want %q", req.Symbol, "TSLA")
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", req.ID, err)
	}

	select {
	case evt := <-ch:
		if evt.Type != "requested" || evt.Request.ID != req.ID {
			t.Errorf("event = %+v, want requested %s", evt, req.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no requested event")
	}

	pending, err := r.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("Pending = %v, %v, want one request", pending, err)
	}

	acked, err := r.Acknowledge(ctx, req.ID)
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if acked.Status != domain.AlertRequestAcknowledged {
		t.Errorf("Status = %q, want %q", acked.Status, domain.AlertRequestAcknowledged)
	}
	if evt := <-ch; evt.Type != "acknowledged" {
		t.Errorf("event type = %q, want acknowledged", evt.Type)
	}

	if pending, _ := r.Pending(ctx); len(pending) != 0 {
		t.Errorf("Pending after ack = %v, want none", pending)
	}
}

func TestRequestValidation(t *testing.T) {
	r := newRequests(t)
	if err := r.RequestAlertCreation(context.Background(), "  "); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("RequestAlertCreation(blank) = %v, want ErrEmptySymbol", err)
	}
	if _, err := r.Acknowledge(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Acknowledge(missing) = %v, want ErrNotFound", err)
	}
}

func TestSnapshot(t *testing.T) {
	r := newRequests(t)
	ctx := context.Background()
	for _, sym := range []string{"AMD", "NVDA"} {
		if err := r.RequestAlertCreation(ctx, sym); err != nil {
			t.Fatal(err)
		}
	}
	evt, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if evt.Type != "snapshot" || len(evt.Pending) != 2 {
		t.Errorf("Snapshot = %+v, want 2 pending", evt)
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	r := newRequests(t)
	ctx := context.Background()
	id, ch := r.Subscribe(1)

	for _, sym := range []string{"AMD", "NVDA", "INTC"} {
		if err := r.RequestAlertCreation(ctx, sym); err != nil {
			t.Fatal(err)
		}
	}
	if len(ch) != 1 {
		t.Errorf("buffered events = %d, want 1", len(ch))
	}

	r.Unsubscribe(id)
	<-ch
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}
