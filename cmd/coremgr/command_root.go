package main

import (
	"github.com/spf13/cobra"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/affinity"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/marker"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/process"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/session"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/tail"
)

// NewRootCmd builds the CLI. Without a subcommand it monitors the game.
func NewRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "coremgr",
		Short:         "Park CPU cores while Path of Exile 2 is loading",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, configDir)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configDir, "config-dir", "", "Directory holding an optional coremgr.{yaml,json,toml}")
	flags.String("process-name", process.DefaultNameMatch, "Substring of the game's process name")
	flags.String("cmdline-match", process.DefaultCmdlineMatch, "Substring of the game's first command-line argument")
	flags.String("fallback-game-dir", session.DefaultFallbackGameDir, "Game directory used when the executable path is unreadable")
	flags.String("log-file", "", "Path to client.txt, overriding <game dir>/logs/client.txt")
	flags.Int("reserved-cores", affinity.DefaultReservedCores, "Number of leading cores parked while loading")
	flags.Duration("process-poll-interval", process.DefaultPollInterval, "Interval between scans while waiting for the game")
	flags.Duration("tail-poll-interval", tail.DefaultPollInterval, "Interval between reads when the log has nothing new")
	flags.Int("max-line-length", marker.DefaultMaxLineLength, "Longer log lines are ignored")
	flags.Bool("restore-on-exit", false, "Restore all cores when interrupted during a loading phase")
	flags.String("health-address", "", "Serve gRPC health on this address (disabled when empty)")
	flags.String("metrics-address", "", "Serve Prometheus metrics on this address (disabled when empty)")
	flags.String("log-level", "info", "Log level")
	flags.String("logger-name", "pretty", "go-logger backend")
	flags.String("procfs-path", process.DefaultProcfsPath, "procfs mount point")

	root.AddCommand(newStatusCmd())

	return root
}
