package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/spf13/cobra"

	"tickermark/internal/config"
	"tickermark/internal/news"
	"tickermark/internal/page"
	"tickermark/internal/store"
)

var (
	newsSymbols string
	newsDate    string
	newsDays    int
	newsNoRSS   bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Archive and inspect annotated market news",
}

var newsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch news for symbols into the parquet archive",
	Args:  cobra.NoArgs,
	RunE:  runNewsSync,
}

var newsShowCmd = &cobra.Command{
	Use:   "show SYMBOL",
	Short: "Print archived articles for SYMBOL with detected tickers",
	Args:  cobra.ExactArgs(1),
	RunE:  runNewsShow,
}

func init() {
	newsSyncCmd.Flags().StringVar(&newsSymbols, "symbols", "", "comma-separated symbols (required)")
	newsSyncCmd.Flags().StringVar(&newsDate, "date", "", "last day to fetch, YYYY-MM-DD (default today)")
	newsSyncCmd.Flags().IntVar(&newsDays, "days", 1, "number of days to fetch ending at --date")
	newsSyncCmd.Flags().BoolVar(&newsNoRSS, "no-rss", false, "skip the Google News and GlobeNewswire feeds")
	newsSyncCmd.MarkFlagRequired("symbols")

	newsShowCmd.Flags().StringVar(&newsDate, "date", "", "archive day, YYYY-MM-DD (default today)")

	newsCmd.AddCommand(newsSyncCmd)
	newsCmd.AddCommand(newsShowCmd)
}

func newMarketDataClient(cfg *config.Config) *marketdata.Client {
	if !cfg.Alpaca.Configured() {
		return nil
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
	}
	if cfg.Alpaca.DataURL != "" {
		opts.BaseURL = cfg.Alpaca.DataURL
	}
	return marketdata.NewClient(opts)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func runNewsSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	day, err := parseDay(newsDate)
	if err != nil {
		return err
	}
	if newsDays < 1 {
		newsDays = 1
	}
	end := day.Add(24 * time.Hour)
	start := end.AddDate(0, 0, -newsDays)

	var sources []news.Source
	if mdc := newMarketDataClient(cfg); mdc != nil {
		sources = append(sources, news.AlpacaSource{Client: mdc})
	}
	if !newsNoRSS {
		sources = append(sources, news.GoogleNews, news.GlobeNewswire)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no news sources: set Alpaca credentials or drop --no-rss")
	}

	syncer := news.NewSyncer(store.NewParquetStore(cfg.News.DataDir), cfg.News.RateLimitPerMin, log, sources...)
	res, err := syncer.Sync(cmd.Context(), strings.Split(newsSymbols, ","), start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "archived %d articles (%d source failures)\n", res.Articles, res.Failed)
	return nil
}

func runNewsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	day, err := parseDay(newsDate)
	if err != nil {
		return err
	}
	articles, err := store.NewParquetStore(cfg.News.DataDir).ReadNews(cmd.Context(), day)
	if err != nil {
		return err
	}
	annotated, err := news.Annotate(articles, page.AnnotateOptions{
		Policy:      policyFor(cfg),
		Layout:      layoutFor(cfg),
		NoHighlight: true,
		Log:         log,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, a := range news.FilterSymbol(annotated, args[0]) {
		out := struct {
			Time     time.Time      `json:"time"`
			Source   string         `json:"source"`
			Headline string         `json:"headline"`
			URL      string         `json:"url,omitempty"`
			Tickers  map[string]int `json:"tickers"`
		}{a.Time, a.Source, a.Headline, a.URL, a.Counts}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
