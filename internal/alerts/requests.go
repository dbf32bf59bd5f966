// Package alerts records alert creation requests made from annotated pages
// and pushes them to the alert configuration surface over pub/sub.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickermark/internal/domain"
	"tickermark/internal/store"
)

// ErrEmptySymbol is returned when a request names no symbol.
var ErrEmptySymbol = errors.New("symbol is required")

// Event is the wire format for SSE messages.
type Event struct {
	Type    string                `json:"type"`              // "snapshot", "requested", "acknowledged"
	Request *domain.AlertRequest  `json:"request,omitempty"` // requested/acknowledged only
	Pending []domain.AlertRequest `json:"pending,omitempty"` // snapshot only
}

// Requests persists alert requests and broadcasts changes to subscribers.
type Requests struct {
	store store.AlertStore
	log   *slog.Logger
	now   func() time.Time

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewRequests creates a Requests backed by st.
func NewRequests(st store.AlertStore, log *slog.Logger) *Requests {
	if log == nil {
		log = slog.Default()
	}
	return &Requests{
		store: st,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		subs:  make(map[int]chan Event),
	}
}

// RequestAlertCreation records a pending request for symbol.
func (r *Requests) RequestAlertCreation(ctx context.Context, symbol string) error {
	_, err := r.Create(ctx, symbol)
	return err
}

// Create records a pending request for symbol and returns it.
func (r *Requests) Create(ctx context.Context, symbol string) (*domain.AlertRequest, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	req := &domain.AlertRequest{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Status:    domain.AlertRequestPending,
		CreatedAt: r.now(),
	}
	if err := r.store.SaveAlertRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("saving alert request for %s: %w", symbol, err)
	}
	r.log.Info("alert requested", "symbol", symbol, "id", req.ID)

	evt := *req
	r.broadcast(Event{Type: "requested", Request: &evt})
	return req, nil
}

// Acknowledge marks a request as handled by the configuration surface.
func (r *Requests) Acknowledge(ctx context.Context, id string) (*domain.AlertRequest, error) {
	if err := r.store.UpdateAlertRequestStatus(ctx, id, domain.AlertRequestAcknowledged); err != nil {
		return nil, err
	}
	req, err := r.store.GetAlertRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	r.log.Info("alert request acknowledged", "symbol", req.Symbol, "id", id)

	evt := *req
	r.broadcast(Event{Type: "acknowledged", Request: &evt})
	return req, nil
}

// Pending lists requests that have not been acknowledged.
func (r *Requests) Pending(ctx context.Context) ([]domain.AlertRequest, error) {
	return r.store.ListAlertRequests(ctx, domain.AlertRequestPending)
}

// List lists requests with the given status, or all when status is empty.
func (r *Requests) List(ctx context.Context, status domain.AlertRequestStatus) ([]domain.AlertRequest, error) {
	return r.store.ListAlertRequests(ctx, status)
}

// Snapshot builds the initial event sent to a new subscriber.
func (r *Requests) Snapshot(ctx context.Context) (Event, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: "snapshot", Pending: pending}, nil
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer; slow consumers will have events dropped.
func (r *Requests) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	r.subsMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[id] = ch
	r.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Requests) Unsubscribe(id int) {
	r.subsMu.Lock()
	if ch, ok := r.subs[id]; ok {
		delete(r.subs, id)
		close(ch)
	}
	r.subsMu.Unlock()
}

// broadcast sends an event to all subscribers non-blocking (drop on full).
func (r *Requests) broadcast(e Event) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer, drop event.
		}
	}
}
