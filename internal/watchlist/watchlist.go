// Package watchlist answers membership queries for annotated symbols and
// adds or removes them, against Alpaca or an in-process list.
package watchlist

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"tickermark/internal/domain"
)

// ErrNotConfigured is returned when no watchlist backend is available.
var ErrNotConfigured = errors.New("watchlist not configured")

// Client is the full watchlist surface used by the API server.
type Client interface {
	List(ctx context.Context) ([]string, error)
	IsInWatchlist(ctx context.Context, symbol string) (domain.Membership, error)
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, id string) error
}

// Compile-time interface checks.
var _ Client = (*Memory)(nil)
var _ Client = (*Alpaca)(nil)

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Memory is an in-process watchlist. Entry IDs are the symbols.
type Memory struct {
	mu      sync.Mutex
	symbols map[string]bool
}

// NewMemory creates a watchlist holding symbols.
func NewMemory(symbols ...string) *Memory {
	m := &Memory{symbols: make(map[string]bool, len(symbols))}
	for _, s := range symbols {
		m.symbols[normalize(s)] = true
	}
	return m
}

// List returns the symbols in sorted order.
func (m *Memory) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.symbols))
	for s := range m.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// IsInWatchlist reports whether symbol is on the list.
func (m *Memory) IsInWatchlist(ctx context.Context, symbol string) (domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return domain.Membership{}, err
	}
	symbol = normalize(symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.symbols[symbol] {
		return domain.Membership{Symbol: symbol, Member: true, EntryID: symbol}, nil
	}
	return domain.Membership{Symbol: symbol}, nil
}

// Add puts symbol on the list.
func (m *Memory) Add(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.symbols[normalize(symbol)] = true
	m.mu.Unlock()
	return nil
}

// Remove takes the entry id off the list. Removing an absent entry is not
// an error.
func (m *Memory) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.symbols, normalize(id))
	m.mu.Unlock()
	return nil
}
