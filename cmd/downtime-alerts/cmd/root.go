package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/downtime-alerts/internal/config"
	"github.com/oshokin/downtime-alerts/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// controlAddress overrides the control surface address from the configuration.
	controlAddress string

	// rootCmd represents the base command of the downtime alert agent.
	rootCmd = &cobra.Command{
		Use:   "downtime-alerts",
		Short: "Track downtime declarations and notify operators.",
		Long: `Client-side downtime alert engine for the maintenance backend.

The run command starts the agent: it polls the alert feed, keeps the local
working set, plays sounds, raises desktop notifications and manages the push
subscription of this device. The remaining commands talk to a running agent
over its local control surface.`,
		SilenceUsage: true,
	}
)

// Execute runs the downtime-alerts CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&controlAddress, "address", "a", "", "control surface address (defaults to the configured one)")
}
