package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"tickermark/internal/domain"
	"tickermark/internal/util"
)

// DefaultName is the Alpaca watchlist used when none is configured.
const DefaultName = "tickermark"

// Alpaca keeps one named Alpaca watchlist. The entry ID of a member is its
// symbol, which is what the remove endpoint takes.
type Alpaca struct {
	client *alpacaapi.Client
	name   string
	log    *slog.Logger

	mu sync.Mutex
	id string
}

// NewAlpaca wraps client. A nil client yields ErrNotConfigured on every call.
func NewAlpaca(client *alpacaapi.Client, name string, log *slog.Logger) *Alpaca {
	if name == "" {
		name = DefaultName
	}
	if log == nil {
		log = slog.Default()
	}
	return &Alpaca{client: client, name: name, log: log}
}

// Init finds the named watchlist or creates it, retrying transient failures.
func (a *Alpaca) Init(ctx context.Context) error {
	_, err := a.watchlistID(ctx)
	return err
}

// ID returns the discovered watchlist ID, or "" before Init succeeds.
func (a *Alpaca) ID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

func (a *Alpaca) watchlistID(ctx context.Context) (string, error) {
	if a.client == nil {
		return "", ErrNotConfigured
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id != "" {
		return a.id, nil
	}

	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		lists, err := a.client.GetWatchlists()
		if err != nil {
			return fmt.Errorf("listing watchlists: %w", err)
		}
		for _, w := range lists {
			if w.Name == a.name {
				a.id = w.ID
				a.log.Info("watchlist found", "name", a.name, "id", w.ID)
				return nil
			}
		}
		w, err := a.client.CreateWatchlist(alpacaapi.CreateWatchlistRequest{Name: a.name})
		if err != nil {
			return fmt.Errorf("creating watchlist: %w", err)
		}
		a.id = w.ID
		a.log.Info("watchlist created", "name", a.name, "id", w.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return a.id, nil
}

// List returns the watchlist symbols in sorted order.
func (a *Alpaca) List(ctx context.Context) ([]string, error) {
	id, err := a.watchlistID(ctx)
	if err != nil {
		return nil, err
	}
	// GetWatchlists doesn't include assets; fetch the full watchlist.
	wl, err := a.client.GetWatchlist(id)
	if err != nil {
		return nil, fmt.Errorf("getting watchlist: %w", err)
	}
	symbols := make([]string, 0, len(wl.Assets))
	for _, asset := range wl.Assets {
		symbols = append(symbols, asset.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// IsInWatchlist reports whether symbol is on the watchlist.
func (a *Alpaca) IsInWatchlist(ctx context.Context, symbol string) (domain.Membership, error) {
	symbol = normalize(symbol)
	symbols, err := a.List(ctx)
	if err != nil {
		return domain.Membership{Symbol: symbol}, err
	}
	i := sort.SearchStrings(symbols, symbol)
	if i < len(symbols) && symbols[i] == symbol {
		return domain.Membership{Symbol: symbol, Member: true, EntryID: symbol}, nil
	}
	return domain.Membership{Symbol: symbol}, nil
}

// Add puts symbol on the watchlist.
func (a *Alpaca) Add(ctx context.Context, symbol string) error {
	id, err := a.watchlistID(ctx)
	if err != nil {
		return err
	}
	symbol = normalize(symbol)
	if _, err := a.client.AddSymbolToWatchlist(id, alpacaapi.AddSymbolToWatchlistRequest{Symbol: symbol}); err != nil {
		return fmt.Errorf("adding %s: %w", symbol, err)
	}
	a.log.Info("watchlist add", "symbol", symbol)
	return nil
}

// Remove takes the entry off the watchlist.
func (a *Alpaca) Remove(ctx context.Context, entryID string) error {
	id, err := a.watchlistID(ctx)
	if err != nil {
		return err
	}
	symbol := normalize(entryID)
	if err := a.client.RemoveSymbolFromWatchlist(id, alpacaapi.RemoveSymbolFromWatchlistRequest{Symbol: symbol}); err != nil {
		return fmt.Errorf("removing %s: %w", symbol, err)
	}
	a.log.Info("watchlist remove", "symbol", symbol)
	return nil
}
