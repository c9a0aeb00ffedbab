// Package commands implements tracebroker's CLI. Grounded on dittofs's
// cmd/dittofs/commands/root.go — a cobra root command with a persistent
// --config flag and one subcommand per verb.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time via -ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "tracebroker",
	Short: "tracebroker - a tracing/profiling broker",
	Long: `tracebroker is a long-running server that receives structured span and
event records from instrumented target applications over TCP, records
them durably to CSV, and is driven by an operator command line on
stdin/stdout.

Use "tracebroker [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/tracebroker/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error to stderr and exits with status 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
