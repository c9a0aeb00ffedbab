package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/tracebroker/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample tracebroker configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/tracebroker/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  tracebroker init

  # Initialize with custom path
  tracebroker init --config /etc/tracebroker/config.yaml

  # Force overwrite an existing config file
  tracebroker init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(&cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: tracebroker start")
	fmt.Printf("  3. Or specify a custom config: tracebroker start --config %s\n", configPath)

	return nil
}
