package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor TICKERMARK_CONFIG is set.
const DefaultPath = "config/tickermark.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for tickermark.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
	Detector Detector `yaml:"detector"`
	Overlay  Overlay  `yaml:"overlay"`
	News     News     `yaml:"news"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca API.
type Alpaca struct {
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	BaseURL       string `yaml:"base_url"`
	DataURL       string `yaml:"data_url"`
	WatchlistName string `yaml:"watchlist_name"`
}

// Configured reports whether credentials are present.
func (a Alpaca) Configured() bool {
	return a.APIKey != ""
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Detector tunes scanning and rescans.
type Detector struct {
	DebounceMS      int      `yaml:"debounce_ms"`
	ExtraExclusions []string `yaml:"extra_exclusions"`
	Viewport        Viewport `yaml:"viewport"`
}

// Debounce returns the rescan quiet period.
func (d Detector) Debounce() time.Duration {
	return time.Duration(d.DebounceMS) * time.Millisecond
}

// Viewport is the synthetic layout size used for marker positions.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Overlay tunes the action panel.
type Overlay struct {
	ToastTTLMS      int `yaml:"toast_ttl_ms"`
	LookupTimeoutMS int `yaml:"lookup_timeout_ms"`
}

// ToastTTL returns how long a toast stays visible.
func (o Overlay) ToastTTL() time.Duration {
	return time.Duration(o.ToastTTLMS) * time.Millisecond
}

// LookupTimeout bounds each collaborator call.
func (o Overlay) LookupTimeout() time.Duration {
	return time.Duration(o.LookupTimeoutMS) * time.Millisecond
}

// News controls news fetching.
type News struct {
	DataDir         string `yaml:"data_dir"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/tickermark.db",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Alpaca: Alpaca{
			WatchlistName: "tickermark",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Detector: Detector{
			DebounceMS: 500,
			Viewport:   Viewport{Width: 1280, Height: 800},
		},
		Overlay: Overlay{
			ToastTTLMS:      3000,
			LookupTimeoutMS: 10000,
		},
		News: News{
			RateLimitPerMin: 180,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config path: flag value, then TICKERMARK_CONFIG, then
// DefaultPath.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("TICKERMARK_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path over the
// defaults and then applies environment variable overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	fillDefaults(cfg)

	return cfg, nil
}

// fillDefaults restores defaults for values a file explicitly zeroed.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Alpaca.WatchlistName == "" {
		cfg.Alpaca.WatchlistName = def.Alpaca.WatchlistName
	}
	if cfg.Detector.DebounceMS <= 0 {
		cfg.Detector.DebounceMS = def.Detector.DebounceMS
	}
	if cfg.Detector.Viewport.Width <= 0 || cfg.Detector.Viewport.Height <= 0 {
		cfg.Detector.Viewport = def.Detector.Viewport
	}
	if cfg.Overlay.ToastTTLMS <= 0 {
		cfg.Overlay.ToastTTLMS = def.Overlay.ToastTTLMS
	}
	if cfg.Overlay.LookupTimeoutMS <= 0 {
		cfg.Overlay.LookupTimeoutMS = def.Overlay.LookupTimeoutMS
	}
	if cfg.News.DataDir == "" {
		cfg.News.DataDir = cfg.Storage.DataDir
	}
	if cfg.News.RateLimitPerMin <= 0 {
		cfg.News.RateLimitPerMin = def.News.RateLimitPerMin
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TICKERMARK_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("TICKERMARK_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("TICKERMARK_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TICKERMARK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("TICKERMARK_WATCHLIST"); v != "" {
		cfg.Alpaca.WatchlistName = v
	}
	if v := os.Getenv("TICKERMARK_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Detector.DebounceMS = ms
		}
	}
	if v := os.Getenv("TICKERMARK_EXTRA_EXCLUSIONS"); v != "" {
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				cfg.Detector.ExtraExclusions = append(cfg.Detector.ExtraExclusions, tok)
			}
		}
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Standard Alpaca env vars, the names the SDK reads, win over the file.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
