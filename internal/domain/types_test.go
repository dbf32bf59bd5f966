package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Zero-value settings disable everything; defaults enable everything.
	s := Settings{}
	if s.AutoDetectEnabled || s.HighlightEnabled {
		t.Error("expected zero-value Settings to be disabled")
	}
	def := DefaultSettings()
	if !def.AutoDetectEnabled || !def.HighlightEnabled {
		t.Errorf("DefaultSettings() = %+v, want both enabled", def)
	}

	m := Membership{}
	if m.Member || m.EntryID != "" {
		t.Error("expected zero-value Membership to be a non-member")
	}

	if AlertRequestPending != "pending" {
		t.Errorf("AlertRequestPending = %q, want %q", AlertRequestPending, "pending")
	}

	now := time.Now()
	req := AlertRequest{ID: "r1", Symbol: "AAPL", Status: AlertRequestPending, CreatedAt: now}
	if req.Symbol != "AAPL" {
		t.Errorf("req.Symbol = %q, want %q", req.Symbol, "AAPL")
	}
}

func TestRect(t *testing.T) {
	if !(Rect{Width: 0, Height: 10}).Empty() {
		t.Error("zero-width rect should be empty")
	}
	r := Rect{X: 5, Y: 10, Width: 32, Height: 16}
	if r.Empty() {
		t.Error("rect with area should not be empty")
	}
	if got := r.BottomLeft(); got != (Point{X: 5, Y: 26}) {
		t.Errorf("BottomLeft() = %+v, want {5 26}", got)
	}
}
