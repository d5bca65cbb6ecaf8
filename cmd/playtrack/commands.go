package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/loykin/playtrack"
	"github.com/loykin/playtrack/pkg/client"
)

// command holds the shared state of every subcommand.
type command struct {
	flags *GlobalFlags
}

func (c *command) loadConfig() (*playtrack.Config, error) {
	cfg, err := playtrack.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// localTracker builds a tracker for one-shot commands. History is disabled
// so that inspecting state never writes events.
func (c *command) localTracker(ctx context.Context, cfg *playtrack.Config) (*playtrack.Tracker, error) {
	cfg.History.Enabled = false
	tr, err := playtrack.New(cfg)
	if err != nil {
		return nil, err
	}
	tr.Init(ctx)
	return tr, nil
}

func newAPIClient(f APIFlags) *client.Client {
	return client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
}

// Scan prints the catalog sorted by name.
func (c *command) Scan(out io.Writer) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	entries := playtrack.ScanCatalog(cfg)
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "no manifests found in %s\n", strings.Join(cfg.Catalog.Roots(), ", "))
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tID")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", e.Name, e.ID)
	}
	return w.Flush()
}

// Match reports the best catalog score for name and whether it is tracked.
func (c *command) Match(out io.Writer, name string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	names := make([]string, 0)
	for _, e := range playtrack.ScanCatalog(cfg) {
		names = append(names, e.Name)
	}
	m := playtrack.NewMatcher(cfg.Matcher)
	score, ok := m.Best(name, names)

	bestName := ""
	for _, n := range names {
		if m.Ratio(strings.ToLower(name), strings.ToLower(n)) == score {
			bestName = n
			break
		}
	}
	switch {
	case m.Excluded(name):
		_, _ = fmt.Fprintf(out, "%s: excluded\n", name)
	case !ok:
		_, _ = fmt.Fprintf(out, "%s: catalog is empty\n", name)
	default:
		_, _ = fmt.Fprintf(out, "%s: best=%q score=%d threshold=%d tracked=%v\n",
			name, bestName, score, m.Threshold(), m.IsTracked(name, names))
	}
	return nil
}

// Stats prints persisted stats, locally or from the daemon.
func (c *command) Stats(ctx context.Context, out io.Writer, f StatsFlags) error {
	stats, err := c.fetchStats(ctx, f)
	if err != nil {
		return err
	}
	if f.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if f.Name != "" {
			return enc.Encode(stats[f.Name])
		}
		return enc.Encode(stats)
	}
	return printStats(out, stats)
}

func (c *command) fetchStats(ctx context.Context, f StatsFlags) (playtrack.Stats, error) {
	if f.APIUrl != "" {
		api := newAPIClient(f.APIFlags)
		if f.Name != "" {
			a, err := api.AppStats(ctx, f.Name)
			if err != nil {
				return nil, err
			}
			return playtrack.Stats{f.Name: playtrack.AppStats(a)}, nil
		}
		all, err := api.Stats(ctx)
		if err != nil {
			return nil, err
		}
		out := make(playtrack.Stats, len(all))
		for k, v := range all {
			out[k] = playtrack.AppStats(v)
		}
		return out, nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := playtrack.OpenStore(cfg.Store.DSN, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	stats, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	if f.Name != "" {
		a, ok := stats[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", playtrack.ErrNotFound, f.Name)
		}
		return playtrack.Stats{f.Name: a}, nil
	}
	return stats, nil
}

func printStats(out io.Writer, stats playtrack.Stats) error {
	if len(stats) == 0 {
		_, _ = fmt.Fprintln(out, "no stats recorded")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "APP\tPLAYTIME\tLAUNCHES\tCPU%\tMEM%")
	for _, name := range stats.Names() {
		a := stats[name]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%.1f\n", name, a.PlaytimeSeconds, a.Launches, a.CPUPercent, a.MemPercent)
	}
	return w.Flush()
}

// Running prints live processes matching the catalog.
func (c *command) Running(ctx context.Context, out io.Writer, f APIFlags) error {
	var apps []string
	if f.APIUrl != "" {
		var err error
		if apps, err = newAPIClient(f).Running(ctx); err != nil {
			return err
		}
	} else {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		tr, err := c.localTracker(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = tr.Close() }()
		if apps, err = tr.RunningApplications(ctx); err != nil {
			return err
		}
	}
	printApps(out, apps)
	return nil
}

func printApps(out io.Writer, apps []string) {
	if len(apps) == 0 {
		_, _ = fmt.Fprintln(out, "no tracked applications running")
		return
	}
	for _, a := range apps {
		_, _ = fmt.Fprintln(out, a)
	}
}

// Watch prints running applications every refresh interval until ctx ends.
// Only changes are printed after the first tick.
func (c *command) Watch(ctx context.Context, out io.Writer) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	tr, err := c.localTracker(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	ctx, stop := signalContext(ctx)
	defer stop()

	var (
		last    string
		printed bool
	)
	sched := playtrack.NewScheduler(nil)
	err = sched.Add(&playtrack.Job{
		Name:      "watch",
		Schedule:  cfg.Tracker.RefreshInterval.String(),
		Singleton: true,
		Immediate: true,
		Run: func(ctx context.Context) {
			apps, err := tr.RunningApplications(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(out, "%s list failed: %v\n", time.Now().Format(time.TimeOnly), err)
				return
			}
			sorted := append([]string(nil), apps...)
			sort.Strings(sorted)
			key := strings.Join(sorted, "\x00")
			if printed && key == last {
				return
			}
			last, printed = key, true
			_, _ = fmt.Fprintf(out, "%s running: %s\n", time.Now().Format(time.TimeOnly), strings.Join(apps, ", "))
		},
	})
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}
