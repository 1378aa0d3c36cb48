// Package cli implements the hostwatch command-line interface.
//
// The root command is "hostwatch" with subcommands for different
// operations:
//
//	hostwatch serve    - Run the monitoring engine and feed server
//	hostwatch check    - Validate the configuration
//	hostwatch init     - Create a starter hostwatch.yaml
//	hostwatch version  - Print version information
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var (
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hostwatch",
	Short: "SSH fleet liveness and resource monitor",
	Long: `hostwatch polls a fleet of machines over SSH, collecting liveness,
CPU/RAM utilization, and GPU details, and serves the aggregated status
as JSON snapshots over HTTP (one-shot and server-sent events).

Hosts behind a bastion are reached through it; while the bastion is
down, no connection to the machines behind it is attempted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to hostwatch.yaml")
}

// Execute runs the root command. Errors are printed once, here, because
// cobra's own error output is silenced.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
