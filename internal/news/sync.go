package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tickermark/internal/domain"
	"tickermark/internal/store"
	"tickermark/internal/util"
)

// Source fetches articles for one symbol.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error)
}

// AlpacaSource reads from the Alpaca news endpoint.
type AlpacaSource struct {
	Client *marketdata.Client
	Limit  int
}

func (s AlpacaSource) Name() string { return "alpaca" }

func (s AlpacaSource) Fetch(_ context.Context, symbol string, start, end time.Time) ([]domain.Article, error) {
	return FetchAlpacaNews(s.Client, []string{symbol}, start, end, s.Limit)
}

// RSSSource reads an RSS feed whose URL depends on the symbol.
type RSSSource struct {
	Label string
	URL   func(symbol string) string
}

func (s RSSSource) Name() string { return s.Label }

func (s RSSSource) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error) {
	return FetchRSS(ctx, s.URL(symbol), s.Label, symbol, start, end)
}

// GoogleNews is the Google News search feed.
var GoogleNews = RSSSource{Label: "google", URL: GoogleNewsURL}

// GlobeNewswire is the GlobeNewswire keyword feed.
var GlobeNewswire = RSSSource{Label: "globenewswire", URL: GlobeNewswireURL}

// Syncer pulls news for a set of symbols from every source and merges it
// into the archive.
type Syncer struct {
	sources []Source
	store   store.NewsStore
	limiter *util.RateLimiter
	log     *slog.Logger

	attempts   int
	retryDelay time.Duration
}

// NewSyncer creates a Syncer limited to perMinute source requests.
func NewSyncer(st store.NewsStore, perMinute int, log *slog.Logger, sources ...Source) *Syncer {
	if perMinute <= 0 {
		perMinute = 180
	}
	return &Syncer{
		sources: sources,
		store:   st,
		limiter: util.NewRateLimiter(perMinute),
		log:     log,

		attempts:   2,
		retryDelay: time.Second,
	}
}

// SetRetry sets how often a failed source fetch is attempted per symbol.
func (s *Syncer) SetRetry(attempts int, delay time.Duration) {
	s.attempts, s.retryDelay = attempts, delay
}

// fetch calls src with retries. Every attempt takes a limiter token; 4xx
// feed responses are not retried.
func (s *Syncer) fetch(ctx context.Context, src Source, sym string, start, end time.Time) ([]domain.Article, error) {
	var articles []domain.Article
	err := util.Retry(ctx, s.attempts, s.retryDelay, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		articles, err = src.Fetch(ctx, sym, start, end)
		var se *StatusError
		if errors.As(err, &se) && !se.Transient() {
			return util.Permanent(err)
		}
		return err
	})
	return articles, err
}

// SyncResult summarizes one Sync call.
type SyncResult struct {
	Articles int
	Failed   int
}

// Sync fetches [start, end] for each symbol. Source failures are logged and
// counted; only a storage error or cancellation aborts the run.
func (s *Syncer) Sync(ctx context.Context, symbols []string, start, end time.Time) (SyncResult, error) {
	var res SyncResult
	var all []domain.Article
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		for _, src := range s.sources {
			articles, err := s.fetch(ctx, src, sym, start, end)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed++
				s.log.Warn("news fetch failed", "source", src.Name(), "symbol", sym, "error", err)
				continue
			}
			s.log.Debug("news fetched", "source", src.Name(), "symbol", sym, "count", len(articles))
			all = append(all, articles...)
		}
	}
	if len(all) == 0 {
		return res, nil
	}
	if err := s.store.WriteNews(ctx, all); err != nil {
		return res, fmt.Errorf("writing news: %w", err)
	}
	res.Articles = len(all)
	s.log.Info("news synced", "symbols", len(symbols), "articles", res.Articles, "failed", res.Failed)
	return res, nil
}
