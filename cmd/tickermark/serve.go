package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tickermark/internal/alerts"
	"tickermark/internal/config"
	"tickermark/internal/httpapi"
	"tickermark/internal/news"
	"tickermark/internal/store"
	"tickermark/internal/watchlist"
)

var (
	serveAddr         string
	serveNewsInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server.host:port)")
	serveCmd.Flags().DurationVar(&serveNewsInterval, "news-interval", 0, "sync news for watchlist symbols at this interval (0 disables)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	defer db.Close()

	newsStore := store.NewParquetStore(cfg.News.DataDir)
	wl := openWatchlist(ctx, cfg, log)

	srv := httpapi.NewServer(httpapi.Options{
		Settings:  db,
		Watchlist: wl,
		Alerts:    alerts.NewRequests(db, log),
		News:      newsStore,
		Policy:    policyFor(cfg),
		Layout:    layoutFor(cfg),
		Log:       log,
	})

	addr := serveAddr
	if addr == "" {
		addr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http api listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if serveNewsInterval > 0 {
		syncer := news.NewSyncer(newsStore, cfg.News.RateLimitPerMin, log, newsSources(cfg)...)
		g.Go(func() error {
			return syncWatchlistNews(gctx, syncer, wl, serveNewsInterval, log)
		})
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// syncWatchlistNews archives the last day of news for every watchlist
// symbol once per interval until ctx is done.
func syncWatchlistNews(ctx context.Context, syncer *news.Syncer, wl watchlist.Client, interval time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		symbols, err := wl.List(ctx)
		if err != nil {
			log.Warn("listing watchlist for news sync", "error", err)
		} else if len(symbols) > 0 {
			end := time.Now().UTC()
			if _, err := syncer.Sync(ctx, symbols, end.Add(-24*time.Hour), end); err != nil && ctx.Err() == nil {
				log.Warn("news sync failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// newsSources returns Alpaca when configured plus the RSS feeds.
func newsSources(cfg *config.Config) []news.Source {
	var sources []news.Source
	if mdc := newMarketDataClient(cfg); mdc != nil {
		sources = append(sources, news.AlpacaSource{Client: mdc})
	}
	return append(sources, news.GoogleNews, news.GlobeNewswire)
}
