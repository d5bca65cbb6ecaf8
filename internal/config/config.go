package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/playtrack/internal/catalog"
	"github.com/loykin/playtrack/internal/logger"
	"github.com/loykin/playtrack/internal/matcher"
)

// EnvPrefix is the prefix of environment overrides, e.g. PLAYTRACK_TRACKER_INTERVAL.
const EnvPrefix = "PLAYTRACK"

// Config is the top-level TOML structure.
type Config struct {
	Catalog CatalogConfig  `mapstructure:"catalog"`
	Matcher matcher.Config `mapstructure:"matcher"`
	Tracker TrackerConfig  `mapstructure:"tracker"`
	Store   StoreConfig    `mapstructure:"store"`
	History HistoryConfig  `mapstructure:"history"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Server  ServerConfig   `mapstructure:"server"`
	Log     logger.Config  `mapstructure:"log"`
}

type CatalogConfig struct {
	Libraries      []string      `mapstructure:"libraries"`
	SteamRoot      string        `mapstructure:"steam_root"`
	ManifestExt    string        `mapstructure:"manifest_ext"`
	RescanInterval time.Duration `mapstructure:"rescan_interval"`
}

// Roots returns the configured libraries followed by the roots found under SteamRoot.
func (c CatalogConfig) Roots() []string {
	return catalog.MergeRoots(c.Libraries, catalog.LibraryRoots(c.SteamRoot))
}

type TrackerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	PlaytimeCredit  int64         `mapstructure:"playtime_credit"`
	SampleTimeout   time.Duration `mapstructure:"sample_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Launchers       []string      `mapstructure:"launchers"`
	RaisePriority   bool          `mapstructure:"raise_priority"`
}

type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

type HistoryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	DSNs    []string      `mapstructure:"dsns"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type ServerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// Defaults used when neither the file nor the environment sets a key.
var (
	DefaultLaunchers = []string{"steam", "steam.exe", "Steam.exe"}
	DefaultStoreDSN  = "playtrack-stats.json"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.libraries", []string{})
	v.SetDefault("catalog.steam_root", catalog.DefaultSteamRoot())
	v.SetDefault("catalog.manifest_ext", catalog.DefaultManifestExt)
	v.SetDefault("catalog.rescan_interval", "10m")

	v.SetDefault("matcher.threshold", matcher.DefaultThreshold)
	v.SetDefault("matcher.algorithm", matcher.AlgorithmIndel)
	v.SetDefault("matcher.denylist", matcher.DefaultDenylist)

	v.SetDefault("tracker.interval", "60s")
	v.SetDefault("tracker.playtime_credit", 1)
	v.SetDefault("tracker.sample_timeout", "2s")
	v.SetDefault("tracker.refresh_interval", "2s")
	v.SetDefault("tracker.launchers", DefaultLaunchers)
	v.SetDefault("tracker.raise_priority", true)

	v.SetDefault("store.dsn", DefaultStoreDSN)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dsns", []string{})
	v.SetDefault("history.timeout", "5s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9100")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.listen", "127.0.0.1:8088")
	v.SetDefault("server.base_path", "/api")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatColor)
	v.SetDefault("log.file", "")
	v.SetDefault("log.stderr", false)
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)
}

// Load reads the TOML file at path (optional) and applies PLAYTRACK_* environment
// overrides on top of the defaults. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file and no environment is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return &c
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Matcher.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Tracker.Interval <= 0 {
		errs = append(errs, fmt.Errorf("tracker.interval must be positive, got %s", c.Tracker.Interval))
	}
	if c.Tracker.SampleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracker.sample_timeout must be positive, got %s", c.Tracker.SampleTimeout))
	}
	if c.Tracker.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("tracker.refresh_interval must be positive, got %s", c.Tracker.RefreshInterval))
	}
	if c.Tracker.PlaytimeCredit < 0 {
		errs = append(errs, fmt.Errorf("tracker.playtime_credit must not be negative, got %d", c.Tracker.PlaytimeCredit))
	}
	if c.Catalog.RescanInterval < 0 {
		errs = append(errs, fmt.Errorf("catalog.rescan_interval must not be negative, got %s", c.Catalog.RescanInterval))
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		errs = append(errs, errors.New("store.dsn must be set"))
	}
	if c.History.Enabled && len(c.History.DSNs) == 0 {
		errs = append(errs, errors.New("history.enabled requires at least one entry in history.dsns"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
