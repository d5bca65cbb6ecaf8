package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/loykin/playtrack/internal/matcher"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "playtrack.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tracker.Interval != time.Minute || c.Tracker.RefreshInterval != 2*time.Second || c.Tracker.SampleTimeout != 2*time.Second {
		t.Fatalf("unexpected tracker timings: %+v", c.Tracker)
	}
	if c.Tracker.PlaytimeCredit != 1 || !c.Tracker.RaisePriority {
		t.Fatalf("unexpected tracker defaults: %+v", c.Tracker)
	}
	if !reflect.DeepEqual(c.Tracker.Launchers, DefaultLaunchers) {
		t.Fatalf("launchers = %v", c.Tracker.Launchers)
	}
	if c.Matcher.Threshold != matcher.DefaultThreshold || c.Matcher.Algorithm != matcher.AlgorithmIndel {
		t.Fatalf("unexpected matcher defaults: %+v", c.Matcher)
	}
	if len(c.Matcher.Denylist) != len(matcher.DefaultDenylist) {
		t.Fatalf("denylist default not applied: %v", c.Matcher.Denylist)
	}
	if c.Store.DSN != DefaultStoreDSN {
		t.Fatalf("store dsn = %q", c.Store.DSN)
	}
	if c.Catalog.ManifestExt != ".acf" || c.Catalog.RescanInterval != 10*time.Minute {
		t.Fatalf("unexpected catalog defaults: %+v", c.Catalog)
	}
	if c.Server.BasePath != "/api" || c.Log.Level != "info" {
		t.Fatalf("unexpected server/log defaults: %+v %+v", c.Server, c.Log)
	}
}

func TestLoadFromTOML(t *testing.T) {
	p := writeTOML(t, `
[catalog]
libraries = ["/games/a", "/games/b"]
steam_root = ""
rescan_interval = "1m"

[matcher]
threshold = 85
algorithm = "levenshtein"
denylist = []

[tracker]
interval = "5s"
playtime_credit = 5
launchers = ["heroic"]
raise_priority = false

[store]
dsn = "sqlite://stats.db"

[history]
enabled = true
dsns = ["sqlite://:memory:"]

[server]
enabled = true
listen = ":9999"
base_path = "/v1"

[log]
level = "debug"
format = "json"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Matcher.Threshold != 85 || c.Matcher.Algorithm != "levenshtein" {
		t.Fatalf("matcher: %+v", c.Matcher)
	}
	if len(c.Matcher.Denylist) != 0 {
		t.Fatalf("explicit empty denylist should stay empty, got %#v", c.Matcher.Denylist)
	}
	if c.Tracker.Interval != 5*time.Second || c.Tracker.PlaytimeCredit != 5 || c.Tracker.RaisePriority {
		t.Fatalf("tracker: %+v", c.Tracker)
	}
	if !reflect.DeepEqual(c.Tracker.Launchers, []string{"heroic"}) {
		t.Fatalf("launchers: %v", c.Tracker.Launchers)
	}
	if c.Store.DSN != "sqlite://stats.db" || !c.History.Enabled || len(c.History.DSNs) != 1 {
		t.Fatalf("store/history: %+v %+v", c.Store, c.History)
	}
	if !c.Server.Enabled || c.Server.Listen != ":9999" || c.Server.BasePath != "/v1" {
		t.Fatalf("server: %+v", c.Server)
	}
	if c.Log.Format != "json" || c.Log.Level != "debug" {
		t.Fatalf("log: %+v", c.Log)
	}
	if roots := c.Catalog.Roots(); !reflect.DeepEqual(roots, []string{filepath.Clean("/games/a"), filepath.Clean("/games/b")}) {
		t.Fatalf("roots: %v", roots)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PLAYTRACK_TRACKER_INTERVAL", "3s")
	t.Setenv("PLAYTRACK_MATCHER_THRESHOLD", "90")
	t.Setenv("PLAYTRACK_STORE_DSN", "/tmp/x.json")
	p := writeTOML(t, `
[tracker]
interval = "30s"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tracker.Interval != 3*time.Second {
		t.Fatalf("env should override file: %s", c.Tracker.Interval)
	}
	if c.Matcher.Threshold != 90 || c.Store.DSN != "/tmp/x.json" {
		t.Fatalf("env overrides not applied: %+v %+v", c.Matcher, c.Store)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	p := writeTOML(t, "[tracker\ninterval=")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold", func(c *Config) { c.Matcher.Threshold = 101 }, "threshold"},
		{"algorithm", func(c *Config) { c.Matcher.Algorithm = "soundex" }, "algorithm"},
		{"interval", func(c *Config) { c.Tracker.Interval = 0 }, "tracker.interval"},
		{"sample timeout", func(c *Config) { c.Tracker.SampleTimeout = -time.Second }, "sample_timeout"},
		{"refresh", func(c *Config) { c.Tracker.RefreshInterval = 0 }, "refresh_interval"},
		{"credit", func(c *Config) { c.Tracker.PlaytimeCredit = -1 }, "playtime_credit"},
		{"rescan", func(c *Config) { c.Catalog.RescanInterval = -time.Second }, "rescan_interval"},
		{"store", func(c *Config) { c.Store.DSN = " " }, "store.dsn"},
		{"history", func(c *Config) { c.History.Enabled = true; c.History.DSNs = nil }, "history"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			if err := c.Validate(); err != nil {
				t.Fatalf("defaults should validate: %v", err)
			}
			tc.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRootsMergesSteamLibraries(t *testing.T) {
	steam := t.TempDir()
	apps := filepath.Join(steam, "steamapps")
	extra := filepath.Join(t.TempDir(), "lib2")
	if err := os.MkdirAll(apps, 0o755); err != nil {
		t.Fatal(err)
	}
	vdf := `"libraryfolders" { "0" { "path" "` + steam + `" } "1" { "path" "` + extra + `" } }`
	if err := os.WriteFile(filepath.Join(apps, "libraryfolders.vdf"), []byte(vdf), 0o644); err != nil {
		t.Fatal(err)
	}
	c := CatalogConfig{Libraries: []string{apps}, SteamRoot: steam}
	got := c.Roots()
	want := []string{filepath.Clean(apps), filepath.Join(extra, "steamapps")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("roots = %v, want %v", got, want)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "playtrack.example.toml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if !c.Server.Enabled || c.Server.BasePath != "/api" || c.Matcher.Threshold != 70 {
		t.Fatalf("unexpected example values: %+v", c)
	}
	if len(c.Matcher.Denylist) == 0 {
		t.Fatalf("expected built-in denylist when unset")
	}
}
