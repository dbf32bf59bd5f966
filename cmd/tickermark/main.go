package main

import (
	"context"
	"log/slog"
	"os"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/spf13/cobra"

	"tickermark/internal/config"
	"tickermark/internal/detect"
	"tickermark/internal/doc"
	"tickermark/internal/domain"
	"tickermark/internal/overlay"
	"tickermark/internal/util"
	"tickermark/internal/watchlist"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tickermark",
	Short: "Detect and annotate stock ticker symbols in HTML",
	Long: `tickermark finds ticker symbols in HTML content, wraps them in
interactive markers and serves watchlist and alert actions for them.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $TICKERMARK_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the --log-level flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)
	return logger
}

func policyFor(cfg *config.Config) *detect.Policy {
	return detect.NewPolicy(cfg.Detector.ExtraExclusions...)
}

func layoutFor(cfg *config.Config) doc.Layout {
	l := doc.DefaultLayout()
	l.Viewport = domain.Size{
		Width:  float64(cfg.Detector.Viewport.Width),
		Height: float64(cfg.Detector.Viewport.Height),
	}
	return l
}

func overlayOptions(cfg *config.Config) overlay.Options {
	return overlay.Options{
		Viewport: domain.Size{
			Width:  float64(cfg.Detector.Viewport.Width),
			Height: float64(cfg.Detector.Viewport.Height),
		},
		ToastTTL:      cfg.Overlay.ToastTTL(),
		LookupTimeout: cfg.Overlay.LookupTimeout(),
	}
}

// openWatchlist returns the Alpaca watchlist when credentials are set and an
// in-process one otherwise.
func openWatchlist(ctx context.Context, cfg *config.Config, log *slog.Logger) watchlist.Client {
	if !cfg.Alpaca.Configured() {
		log.Info("alpaca not configured, using in-memory watchlist")
		return watchlist.NewMemory()
	}
	client := alpacaapi.NewClient(alpacaapi.ClientOpts{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		BaseURL:   cfg.Alpaca.BaseURL,
	})
	wl := watchlist.NewAlpaca(client, cfg.Alpaca.WatchlistName, log)
	if err := wl.Init(ctx); err != nil {
		// Lookups retry discovery lazily.
		log.Warn("watchlist discovery failed", "name", cfg.Alpaca.WatchlistName, "error", err)
	}
	return wl
}
