package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hostwatch/internal/config"
)

var initForce bool

// initCmd creates a starter hostwatch.yaml.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter hostwatch.yaml",
	Long: `Write a commented starter configuration to the current directory
(or to the --config path if given).

Examples:
  hostwatch init
  hostwatch init --config /etc/hostwatch.yaml
  hostwatch init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand()
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func initCommand() error {
	path := configFlag
	if path == "" {
		path = config.ConfigFileName
	}
	if err := config.WriteStarter(path, initForce); err != nil {
		return err
	}
	fmt.Printf("Wrote %s - edit the host list, then run 'hostwatch check'\n", path)
	return nil
}
