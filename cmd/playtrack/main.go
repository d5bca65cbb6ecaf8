package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags selects a remote daemon instead of local state.
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// StatsFlags holds flags for the stats command
type StatsFlags struct {
	APIFlags
	Name string
	JSON bool
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	Daemonize bool
	PidFile   string
	LogFile   string
}

// buildRoot creates the root command with all subcommands attached.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	c := &command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(c, &ServeFlags{}),
		createScanCommand(c),
		createMatchCommand(c),
		createStatsCommand(c, &StatsFlags{}),
		createRunningCommand(c, &APIFlags{}),
		createWatchCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "playtrack",
		Short: "Game playtime and launch tracker",
		Long: `Playtrack watches the process table for games started by a launcher,
counts launches and playtime, and samples CPU and memory usage.

Examples:
  playtrack scan                         # List installed games
  playtrack match "TestGame.exe"         # Check whether a name is tracked
  playtrack serve --config=playtrack.toml
  playtrack stats --api-url=http://127.0.0.1:8088/api`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "remote daemon URL (e.g. http://127.0.0.1:8088/api)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createServeCommand(c *command, f *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Run the tracking daemon",
		Long: `Run the tracking daemon. It loads stats, scans the catalog, runs one cycle
per tracker.interval and persists after each cycle. The HTTP read API and the
metrics endpoint start when enabled in the config.

Examples:
  playtrack serve
  playtrack serve playtrack.toml
  playtrack serve --daemonize --pidfile=/run/playtrack.pid`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				c.flags.ConfigPath = args[0]
			}
			if f.Daemonize {
				return daemonize(f.PidFile, f.LogFile)
			}
			return c.Serve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&f.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&f.PidFile, "pidfile", "", "write daemon pid to file")
	cmd.Flags().StringVar(&f.LogFile, "logfile", "", "redirect daemon output to file")
	return cmd
}

func createScanCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List installed applications found in the library roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Scan(cmd.OutOrStdout())
		},
	}
}

func createMatchCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "match <process-name>",
		Short: "Show the best catalog score for a process name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Match(cmd.OutOrStdout(), args[0])
		},
	}
}

func createStatsCommand(c *command, f *StatsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print persisted stats",
		Long: `Print stats from the configured store, or from a running daemon when
--api-url is set.

Examples:
  playtrack stats
  playtrack stats --name=testgame.exe
  playtrack stats --api-url=http://127.0.0.1:8088/api --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stats(cmd.Context(), cmd.OutOrStdout(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "only this executable name")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print JSON")
	addAPIFlags(cmd, &f.APIFlags)
	return cmd
}

func createRunningCommand(c *command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "running",
		Short: "List running processes that match the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Running(cmd.Context(), cmd.OutOrStdout(), *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createWatchCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print running applications every tracker.refresh_interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Watch(cmd.Context(), cmd.OutOrStdout())
		},
	}
}
