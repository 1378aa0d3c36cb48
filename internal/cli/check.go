package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hostwatch/internal/config"
)

// checkCmd validates the configuration without touching any host.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Long: `Load and validate the configuration, then print a summary of what
a serve run would monitor. No SSH connection is attempted.

Examples:
  hostwatch check
  hostwatch check --config /etc/hostwatch.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkCommand()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkCommand() error {
	path, err := config.Find(configFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s is valid\n", path)
	if cfg.JumpHost != "" {
		fmt.Printf("  jump host: %s\n", cfg.JumpHost)
	}
	for _, hc := range cfg.Monitored() {
		line := "  monitor:   " + hc.Alias
		if hc.RelayAlias != "" {
			line += " (via " + hc.RelayAlias + ")"
		}
		if hc.CheckGPU {
			line += " [gpu]"
		}
		fmt.Println(line)
	}
	fmt.Printf("  intervals: active %ds / idle %ds\n", cfg.ActiveIntervalSec, cfg.IdleIntervalSec)
	fmt.Printf("  listen:    %s\n", cfg.Listen)
	return nil
}
